package mcp

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/viant/agentbridge/internal/log"
	"github.com/viant/agentbridge/internal/obs"
)

// DefaultCacheTTL is the Tool-Schema Cache TTL (spec §3, §4.1: "default
// 5 min").
const DefaultCacheTTL = 5 * time.Minute

// DefaultRefreshInterval is the steady-state background discovery interval.
const DefaultRefreshInterval = DefaultCacheTTL

const (
	minBackoff = time.Second
	maxBackoff = 60 * time.Second
)

type entry struct {
	descriptor Descriptor
	transport  Transport
	health     Health

	mu      sync.RWMutex
	catalog CatalogEntry
}

// Registry holds the enabled-ordered set of MCP descriptors, their
// transports, health state and Tool-Schema Cache (spec §4.1).
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry

	ttl           time.Duration
	refreshEvery  time.Duration
	refreshGroup  singleflight.Group

	tracer  obs.Tracer
	metrics obs.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures a Registry.
type Options struct {
	TTL             time.Duration
	RefreshInterval time.Duration
	Tracer          obs.Tracer
	Metrics         obs.Metrics
}

// NewRegistry builds a Registry from descriptors. Disabled descriptors are
// retained (for reload visibility) but excluded from the enabled order.
func NewRegistry(descriptors []Descriptor, opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Tracer == nil {
		opts.Tracer = obs.NoopTracer{}
	}
	if opts.Metrics == nil {
		opts.Metrics = obs.NoopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		entries:      map[string]*entry{},
		ttl:          opts.TTL,
		refreshEvery: opts.RefreshInterval,
		tracer:       opts.Tracer,
		metrics:      opts.Metrics,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, d := range descriptors {
		r.addLocked(d)
	}
	return r
}

func (r *Registry) addLocked(d Descriptor) {
	var transport Transport
	switch d.Transport {
	case TransportStdio:
		transport = NewStdioTransport(d)
	default:
		transport = NewHTTPTransport(d)
	}
	e := &entry{descriptor: d, transport: transport}
	r.entries[d.Name] = e
	if d.Enabled {
		r.order = append(r.order, d.Name)
	}
}

// Start launches one background discovery goroutine per enabled MCP.
func (r *Registry) Start() {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()
	for _, name := range names {
		go r.monitor(name)
	}
}

// Stop halts all background discovery goroutines.
func (r *Registry) Stop() {
	r.cancel()
}

func (r *Registry) monitor(name string) {
	backoff := minBackoff
	for {
		err := r.refresh(r.ctx, name)
		if r.ctx.Err() != nil {
			return
		}
		var wait time.Duration
		if err != nil {
			wait = backoff + time.Duration(rand.Int63n(int64(backoff)/2+1))
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		} else {
			backoff = minBackoff
			wait = r.refreshEvery
		}
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// refresh re-discovers name's tool catalog, coalescing concurrent refreshes
// for the same MCP (spec §5: "one refresh per MCP at a time (a coalescing
// guard prevents thundering herds)"). On failure the previous catalog is
// retained (spec §4.1: "stale catalog ... continues to serve until the next
// success").
func (r *Registry) refresh(ctx context.Context, name string) error {
	_, err, _ := r.refreshGroup.Do(name, func() (interface{}, error) {
		r.mu.RLock()
		e, ok := r.entries[name]
		r.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		tools, err := e.transport.ListTools(ctx)
		if err != nil {
			e.health.MarkFailure()
			r.metrics.Inc("mcp_discovery_error", map[string]string{"mcp": name}, 1)
			log.Publish(log.Event{Time: time.Now(), EventType: log.MCPHealth, Payload: map[string]any{"mcp": name, "status": e.health.Get().String()}})
			return nil, err
		}
		e.health.MarkSuccess()
		e.mu.Lock()
		e.catalog = CatalogEntry{Tools: tools, FetchedAt: time.Now()}
		e.mu.Unlock()
		log.Publish(log.Event{Time: time.Now(), EventType: log.MCPHealth, Payload: map[string]any{"mcp": name, "status": "healthy"}})
		return nil, nil
	})
	return err
}

// Catalog returns the cached tool list for mcp, refreshing first if the
// cache is stale or empty (spec §4.1 schema-caching policy).
func (r *Registry) Catalog(ctx context.Context, mcpName string) []Tool {
	r.mu.RLock()
	e, ok := r.entries[mcpName]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	e.mu.RLock()
	fresh := !e.catalog.FetchedAt.IsZero() && time.Since(e.catalog.FetchedAt) < r.ttl
	tools := e.catalog.Tools
	e.mu.RUnlock()
	if fresh {
		return tools
	}
	_ = r.refresh(ctx, mcpName)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog.Tools
}

// Descriptors returns every known descriptor: the enabled ones first, in
// registration order, then the disabled ones in no particular order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	seen := map[string]bool{}
	for _, name := range r.order {
		if e, ok := r.entries[name]; ok && !seen[name] {
			out = append(out, e.descriptor)
			seen[name] = true
		}
	}
	for name, e := range r.entries {
		if !seen[name] {
			out = append(out, e.descriptor)
			seen[name] = true
		}
	}
	return out
}

// Health reports the current health status for mcp.
func (r *Registry) Health(mcpName string) Status {
	r.mu.RLock()
	e, ok := r.entries[mcpName]
	r.mu.RUnlock()
	if !ok {
		return StatusUnknown
	}
	return e.health.Get()
}

// CallTool invokes tool on mcp. Preconditions (MCP enabled, tool in the last
// known catalog, caller already permission-checked) are the caller's
// responsibility (spec §4.1 tool invocation contract).
func (r *Registry) CallTool(ctx context.Context, mcpName, tool string, args map[string]interface{}) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[mcpName]
	r.mu.RUnlock()
	if !ok {
		return "", &TransportError{Message: "mcp: unknown MCP " + mcpName}
	}
	result, err := e.transport.CallTool(ctx, tool, args)
	if err != nil {
		if _, isTransport := err.(*TransportError); isTransport {
			e.health.MarkFailure()
		}
		return "", err
	}
	return result, nil
}

// Reload applies a hot-swapped descriptor (spec §6: MCP registry "reloadable
// without restart"). An unknown name adds a new entry; a known name replaces
// its descriptor (keeping its health state) and rebuilds the transport.
func (r *Registry) Reload(ctx context.Context, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, existed := r.entries[d.Name]; !existed {
		r.addLocked(d)
		if d.Enabled {
			go r.monitor(d.Name)
		}
		return
	}
	e := r.entries[d.Name]
	e.descriptor = d
	switch d.Transport {
	case TransportStdio:
		e.transport = NewStdioTransport(d)
	default:
		e.transport = NewHTTPTransport(d)
	}
	// Keep the existing enabled order; a newly enabled MCP goes last.
	order := make([]string, 0, len(r.order)+1)
	listed := false
	for _, name := range r.order {
		if name == d.Name {
			listed = true
			if !d.Enabled {
				continue
			}
		}
		order = append(order, name)
	}
	if d.Enabled && !listed {
		order = append(order, d.Name)
	}
	r.order = order
}
