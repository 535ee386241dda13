package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/agentbridge/genai/llm"
)

func newTestRegistry() *Registry {
	return NewRegistry(New(), []ModelEntry{
		{ID: "smart", Options: &Options{Provider: ProviderOpenAI, Model: "smart", APIKeyEnv: "X"}, Intelligence: 1, Speed: 0.2},
		{ID: "fast", Options: &Options{Provider: ProviderOpenAI, Model: "fast", APIKeyEnv: "X"}, Intelligence: 0.2, Speed: 1},
	})
}

func TestRegistryFindBuildsAndCaches(t *testing.T) {
	r := newTestRegistry()

	m1, err := r.Find(context.Background(), "smart")
	require.NoError(t, err)
	require.NotNil(t, m1)

	m2, err := r.Find(context.Background(), "smart")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
}

func TestRegistryFindUnknownID(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Find(context.Background(), "ghost")

	assert.Error(t, err)
}

func TestMatcherPrefersHintOverScore(t *testing.T) {
	r := newTestRegistry()
	prefs := llm.NewModelPreferences(llm.WithHints("fast"))
	prefs.Intelligence, prefs.Speed = 1, 0

	assert.Equal(t, "fast", r.Matcher().Best(prefs))
}

func TestMatcherWeightsScoreWithoutHint(t *testing.T) {
	r := newTestRegistry()
	prefs := llm.NewModelPreferences()
	prefs.Intelligence, prefs.Speed = 1, 0

	assert.Equal(t, "smart", r.Matcher().Best(prefs))
}

func TestMatcherBestWithFilterExcludesDisallowed(t *testing.T) {
	r := newTestRegistry()
	prefs := llm.NewModelPreferences()
	prefs.Intelligence, prefs.Speed = 1, 0

	id := r.Matcher().BestWithFilter(prefs, func(id string) bool { return id != "smart" })

	assert.Equal(t, "fast", id)
}
