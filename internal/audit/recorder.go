// Package audit implements the Audit Recorder (spec §4.6): exactly one
// durable Record per request, written via an external persistence
// collaborator through a bounded, non-blocking enqueue so a slow or
// unavailable store never holds up the caller's response.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/viant/agentbridge/internal/obs"
)

// Persister is the external durable-storage collaborator. Implementations
// are expected to be idempotent on Record.ID so the recorder's at-most-one
// retry never double-counts.
type Persister interface {
	Persist(ctx context.Context, record Record) error
}

// Recorder accepts completed request descriptors and persists them
// asynchronously, retrying a transient failure at most once before logging
// and dropping the record (spec §4.6).
type Recorder struct {
	persister Persister
	queue     chan Record
	tracer    obs.Tracer
	metrics   obs.Metrics

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Options configures a Recorder.
type Options struct {
	QueueSize int
	Tracer    obs.Tracer
	Metrics   obs.Metrics
}

// New builds a Recorder and starts its background worker. Call Stop to
// drain and halt it.
func New(persister Persister, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Tracer == nil {
		opts.Tracer = obs.NoopTracer{}
	}
	if opts.Metrics == nil {
		opts.Metrics = obs.NoopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		persister: persister,
		queue:     make(chan Record, opts.QueueSize),
		tracer:    opts.Tracer,
		metrics:   opts.Metrics,
		cancel:    cancel,
	}
	r.wg.Add(1)
	go r.loop(ctx)
	return r
}

// Record enqueues a record for asynchronous persistence. It never blocks:
// when the queue is full the record is dropped and a metric is incremented,
// matching spec §4.6's "must not block the response ... for arbitrarily
// long".
func (r *Recorder) Record(record Record) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	select {
	case r.queue <- record:
	default:
		r.metrics.Inc("audit_queue_full_dropped", nil, 1)
		r.tracer.Debug("audit.dropped", map[string]any{"reason": "queue_full", "id": record.ID})
	}
}

// Stop drains pending work then halts the background worker.
func (r *Recorder) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Recorder) loop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case rec := <-r.queue:
			r.persistWithRetry(ctx, rec)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case rec := <-r.queue:
					r.persistWithRetry(ctx, rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persistWithRetry(ctx context.Context, rec Record) {
	if err := r.persister.Persist(ctx, rec); err != nil {
		r.metrics.Inc("audit_persist_retry", nil, 1)
		if err = r.persister.Persist(ctx, rec); err != nil {
			r.metrics.Inc("audit_persist_dropped", nil, 1)
			r.tracer.Debug("audit.dropped", map[string]any{"reason": "persist_failed", "id": rec.ID, "error": err.Error()})
			return
		}
	}
	r.metrics.Inc("audit_persisted", nil, 1)
}
