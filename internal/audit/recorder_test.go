package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePersister struct {
	mu       sync.Mutex
	attempts map[string]int
	failN    int // fail the first failN attempts per record, then succeed
	records  []Record
}

func newFakePersister(failN int) *fakePersister {
	return &fakePersister{attempts: map[string]int{}, failN: failN}
}

func (f *fakePersister) Persist(ctx context.Context, record Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[record.ID]++
	if f.attempts[record.ID] <= f.failN {
		return errors.New("transient failure")
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func TestRecorderPersistsSuccessfully(t *testing.T) {
	p := newFakePersister(0)
	r := New(p, Options{})
	r.Record(Record{ID: "1", UserID: "u1", Status: StatusSuccess})
	assert.Eventually(t, func() bool { return p.count() == 1 }, time.Second, time.Millisecond)
	r.Stop()
}

func TestRecorderRetriesOnceThenSucceeds(t *testing.T) {
	p := newFakePersister(1)
	r := New(p, Options{})
	r.Record(Record{ID: "1", Status: StatusSuccess})
	assert.Eventually(t, func() bool { return p.count() == 1 }, time.Second, time.Millisecond)
	r.Stop()
}

func TestRecorderDropsAfterSecondFailure(t *testing.T) {
	p := newFakePersister(5)
	r := New(p, Options{})
	r.Record(Record{ID: "1", Status: StatusError})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, p.count())
	r.Stop()
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	p := newFakePersister(0)
	r := New(p, Options{QueueSize: 1})
	for i := 0; i < 10; i++ {
		r.Record(Record{ID: string(rune('a' + i))})
	}
	r.Stop()
}
