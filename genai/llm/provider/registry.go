package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/agentbridge/genai/llm"
)

// ModelEntry describes one model a Registry can build and select between:
// its build Options plus the scoring inputs a Matcher consults when a
// caller expresses ModelPreferences instead of naming a model outright.
type ModelEntry struct {
	ID      string
	Options *Options

	// Intelligence/Speed are this model's own ratings on the same 0-1 scale
	// as llm.ModelPreferences, used by the weighted fallback score.
	Intelligence float64
	Speed        float64
}

// Registry builds and caches every configured model on demand and exposes
// llm.Finder/llm.Matcher/llm.ReducingMatcher over the set, so a caller that
// knows only an id or a ModelPreferences (rather than a concrete Options)
// can resolve one, mirroring the teacher's modelfinder.Finder and its
// hotswap_register.go caller.
type Registry struct {
	factory *Factory
	entries map[string]ModelEntry
	order   []string

	mu     sync.Mutex
	models map[string]llm.Model
}

// NewRegistry builds a Registry over entries. Models are constructed lazily
// on first Find (Best only scores entries) so an entry whose provider is never selected never
// pays for a client (and never needs a reachable API key) at startup.
func NewRegistry(factory *Factory, entries []ModelEntry) *Registry {
	r := &Registry{factory: factory, entries: map[string]ModelEntry{}, models: map[string]llm.Model{}}
	for _, e := range entries {
		r.entries[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

// Find implements llm.Finder: it resolves id to a built llm.Model, building
// and caching it on first use.
func (r *Registry) Find(ctx context.Context, id string) (llm.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.models[id]; ok {
		return m, nil
	}
	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("provider: no model registered under id %q", id)
	}
	model, err := r.factory.CreateModel(entry.Options)
	if err != nil {
		return nil, fmt.Errorf("provider: building model %q: %w", id, err)
	}
	r.models[id] = model
	return model, nil
}

// Matcher returns a selector over this Registry's entries satisfying both
// llm.Matcher and llm.ReducingMatcher.
func (r *Registry) Matcher() *Matcher { return &Matcher{registry: r} }

// Matcher picks the best-fit model id for a set of llm.ModelPreferences:
// hints are matched against ids first (first hint that names a registered
// id wins), then candidates are ranked by a weighted Intelligence/Speed
// score against the entries' own ratings.
type Matcher struct{ registry *Registry }

// Best implements llm.Matcher.
func (m *Matcher) Best(preferences *llm.ModelPreferences) string {
	return m.BestWithFilter(preferences, nil)
}

// BestWithFilter implements llm.ReducingMatcher: allow, when non-nil,
// restricts the candidate set before scoring (e.g. to ids a particular
// role is permitted to use).
func (m *Matcher) BestWithFilter(preferences *llm.ModelPreferences, allow func(id string) bool) string {
	candidates := make([]string, 0, len(m.registry.order))
	for _, id := range m.registry.order {
		if allow == nil || allow(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	if preferences != nil {
		for _, hint := range preferences.Hints {
			for _, id := range candidates {
				if strings.EqualFold(id, hint) || strings.Contains(strings.ToLower(id), strings.ToLower(hint)) {
					return id
				}
			}
		}
	}

	best, bestScore := candidates[0], -1.0
	for _, id := range candidates {
		entry := m.registry.entries[id]
		score := entry.Intelligence + entry.Speed
		if preferences != nil {
			score = entry.Intelligence*preferences.Intelligence + entry.Speed*preferences.Speed
		}
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}
