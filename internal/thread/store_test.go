package thread

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreFIFOBound(t *testing.T) {
	s := NewStore(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Append(ctx, "c1", Message{Role: "user", Text: string(rune('a' + i))})
	}
	recent := s.Recent(ctx, "c1")
	assert.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Text)
	assert.Equal(t, "e", recent[2].Text)
}

func TestStoreRecentUnknownConversation(t *testing.T) {
	s := NewStore(3, time.Hour)
	assert.Nil(t, s.Recent(context.Background(), "missing"))
}

func TestStoreSweepEvictsStale(t *testing.T) {
	s := NewStore(3, time.Millisecond)
	s.Append(context.Background(), "c1", Message{Role: "user", Text: "hi"})
	time.Sleep(5 * time.Millisecond)
	evicted := s.Sweep(time.Now())
	assert.Equal(t, 1, evicted)
	assert.Nil(t, s.Recent(context.Background(), "c1"))
}

func TestStoreSweepKeepsFresh(t *testing.T) {
	s := NewStore(3, time.Hour)
	s.Append(context.Background(), "c1", Message{Role: "user", Text: "hi"})
	evicted := s.Sweep(time.Now())
	assert.Equal(t, 0, evicted)
	assert.Len(t, s.Recent(context.Background(), "c1"), 1)
}
