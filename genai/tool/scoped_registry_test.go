package tool

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/agentbridge/genai/llm"
)

type captureRegistry struct {
	lastConversationID string
}

func (c *captureRegistry) Definitions() []llm.ToolDefinition { return nil }
func (c *captureRegistry) MatchDefinition(string) []*llm.ToolDefinition {
	return nil
}
func (c *captureRegistry) GetDefinition(string) (*llm.ToolDefinition, bool) { return nil, false }
func (c *captureRegistry) MustHaveTools([]string) ([]llm.Tool, error)       { return nil, nil }
func (c *captureRegistry) Execute(ctx context.Context, _ string, _ map[string]interface{}) (string, error) {
	c.lastConversationID = ConversationIDFromContext(ctx)
	return "", nil
}
func (c *captureRegistry) SetDebugLogger(io.Writer) {}

func TestScopedRegistryInjectsConversationID(t *testing.T) {
	inner := &captureRegistry{}
	reg := WithConversation(inner, "conv-123")

	_, err := reg.Execute(context.Background(), "noop", nil)
	assert.NoError(t, err)
	assert.Equal(t, "conv-123", inner.lastConversationID)
}

func TestScopedRegistryPreservesExistingConversationID(t *testing.T) {
	inner := &captureRegistry{}
	reg := WithConversation(inner, "conv-123")

	ctx := WithConversationID(context.Background(), "conv-already-set")
	_, err := reg.Execute(ctx, "noop", nil)
	assert.NoError(t, err)
	assert.Equal(t, "conv-already-set", inner.lastConversationID)
}

func TestWithConversationNoOpWhenMissingArgs(t *testing.T) {
	inner := &captureRegistry{}
	assert.Equal(t, Registry(inner), WithConversation(inner, ""))
	assert.Nil(t, WithConversation(nil, "conv-123"))
}
