package base

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacerDisabledForNonPositiveRate(t *testing.T) {
	assert.Nil(t, NewPacer(0, 1))
	assert.Nil(t, NewPacer(-1, 1))
}

func TestNilPacerWaitIsNoop(t *testing.T) {
	var p *Pacer
	assert.NoError(t, p.Wait(context.Background()))
}

func TestPacerWaitThrottlesBurst(t *testing.T) {
	p := NewPacer(1000, 1)
	require.NotNil(t, p)

	ctx := context.Background()
	require.NoError(t, p.Wait(ctx))

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.Greater(t, time.Since(start), time.Millisecond)
}

func TestPacerWaitRespectsContextCancellation(t *testing.T) {
	p := NewPacer(1, 1)
	require.NotNil(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Wait(ctx))
	cancel()

	err := p.Wait(ctx)
	assert.Error(t, err)
}
