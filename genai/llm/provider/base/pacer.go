package base

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer throttles outbound LM requests to a steady rate, independent of the
// per-user sliding-window limiter (which bounds a single user's request
// count over an hour; this bounds the adapter's total outbound call rate
// against the upstream provider). A nil *Pacer is a no-op, so adapters can
// embed one unconditionally and skip it when unconfigured.
type Pacer struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// NewPacer builds a Pacer allowing ratePerSecond requests per second with
// the given burst. A non-positive ratePerSecond disables pacing (returns nil).
func NewPacer(ratePerSecond float64, burst int) *Pacer {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a slot is available or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.limiter.Wait(ctx)
}
