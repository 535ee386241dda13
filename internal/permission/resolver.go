package permission

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/viant/agentbridge/internal/obs"
)

// DefaultCacheTTL is the resolver's per-user cache TTL (spec §4.2: "caches
// its result per user for a short TTL (default 5 min)").
const DefaultCacheTTL = 5 * time.Minute

// Snapshot exposes the configuration a Resolver evaluates against: roles,
// enabled MCPs and their discovered tool catalogs. Version identifies the
// snapshot so a config reload naturally invalidates cached decisions without
// an explicit purge (new version, new cache keys; stale entries simply
// expire off the TTL).
type Snapshot interface {
	Role(name string) (Role, bool)
	MCPs() []MCPDescriptor
	Catalog(mcp string) []Tool
	Version() string
}

// Options configures a Resolver.
type Options struct {
	TTL     time.Duration
	Tracer  obs.Tracer
	Metrics obs.Metrics
}

// Resolver coalesces concurrent lookups for the same user via singleflight
// and caches the resulting Allowed-Tools View for a short TTL, following the
// fast-path-check / coalesce-recompute / cache-update shape this package is
// grounded on.
type Resolver struct {
	snapshot Snapshot
	cache    *lru.LRU[string, []Tool]
	group    singleflight.Group
	opts     Options
}

// NewResolver builds a Resolver reading configuration from snapshot.
func NewResolver(snapshot Snapshot, opts Options) *Resolver {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.Tracer == nil {
		opts.Tracer = obs.NoopTracer{}
	}
	if opts.Metrics == nil {
		opts.Metrics = obs.NoopMetrics{}
	}
	return &Resolver{
		snapshot: snapshot,
		cache:    lru.NewLRU[string, []Tool](4096, nil, opts.TTL),
		opts:     opts,
	}
}

// AllowedTools returns the cached (or freshly computed) Allowed-Tools View
// for user.
func (r *Resolver) AllowedTools(ctx context.Context, user User) ([]Tool, error) {
	user = EffectiveUser(user)
	key := user.ID + "\x00" + user.Role + "\x00" + r.snapshot.Version()

	if v, ok := r.cache.Get(key); ok {
		r.opts.Metrics.Inc("permission_cache_hit", nil, 1)
		return v, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if v, ok := r.cache.Get(key); ok {
			return v, nil
		}
		role, _ := r.snapshot.Role(user.Role)
		mcps := r.snapshot.MCPs()
		catalogs := make(map[string][]Tool, len(mcps))
		for _, m := range mcps {
			catalogs[m.Name] = r.snapshot.Catalog(m.Name)
		}
		tools := AllowedTools(user, role, mcps, catalogs)
		r.cache.Add(key, tools)
		r.opts.Metrics.Inc("permission_cache_miss", nil, 1)
		r.opts.Tracer.Debug("permission.resolved", map[string]any{
			"user": user.ID, "role": user.Role, "tools": len(tools),
		})
		return tools, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Tool), nil
}

// Decide evaluates a single tool against user/role/mcp without touching the
// cache — used by the Agentic Loop to re-check a specific tool call before
// dispatch (spec §4.5: denied calls are answered with a "not permitted"
// result rather than silently dropped).
func (r *Resolver) Decide(ctx context.Context, user User, mcpName string, tool Tool) Decision {
	user = EffectiveUser(user)
	role, _ := r.snapshot.Role(user.Role)
	for _, m := range r.snapshot.MCPs() {
		if m.Name == mcpName {
			return Resolve(user, role, m, tool)
		}
	}
	return Decision{Allowed: false, Reason: ReasonMCPDisabled}
}
