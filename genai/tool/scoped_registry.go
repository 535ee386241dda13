package tool

import (
	"context"
	"io"

	"github.com/viant/agentbridge/genai/llm"
)

type conversationIDKeyT struct{}

var conversationIDKey = conversationIDKeyT{}

// WithConversationID attaches a conversation ID to ctx.
func WithConversationID(ctx context.Context, convID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, convID)
}

// ConversationIDFromContext returns the conversation ID attached via
// WithConversationID, or "" if none is present.
func ConversationIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(conversationIDKey).(string)
	return v
}

// scopedRegistry binds a Registry to a specific conversation ID so every
// Execute call carries it in context, letting downstream collaborators
// (the Thread Store, audit tagging) resolve per-conversation state without
// threading an extra parameter through every call site.
type scopedRegistry struct {
	inner  Registry
	convID string
}

// WithConversation returns a Registry whose Execute attaches convID to ctx
// unless ctx already carries a conversation ID, which is then kept. It
// returns inner unchanged when inner is nil or convID is empty. All other
// methods delegate to the underlying registry.
func WithConversation(inner Registry, convID string) Registry {
	if inner == nil || convID == "" {
		return inner
	}
	return &scopedRegistry{inner: inner, convID: convID}
}

func (s *scopedRegistry) Definitions() []llm.ToolDefinition { return s.inner.Definitions() }

func (s *scopedRegistry) MatchDefinition(pattern string) []*llm.ToolDefinition {
	return s.inner.MatchDefinition(pattern)
}

// MatchDefinitionWithContext delegates to the underlying registry when it
// supports ContextMatcher; otherwise falls back to MatchDefinition.
func (s *scopedRegistry) MatchDefinitionWithContext(ctx context.Context, pattern string) []*llm.ToolDefinition {
	if cm, ok := s.inner.(ContextMatcher); ok {
		return cm.MatchDefinitionWithContext(ctx, pattern)
	}
	return s.inner.MatchDefinition(pattern)
}

func (s *scopedRegistry) GetDefinition(name string) (*llm.ToolDefinition, bool) {
	return s.inner.GetDefinition(name)
}

func (s *scopedRegistry) MustHaveTools(patterns []string) ([]llm.Tool, error) {
	return s.inner.MustHaveTools(patterns)
}

// Execute injects the conversation ID into context and delegates to the
// underlying registry.
func (s *scopedRegistry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	if s.convID != "" && ConversationIDFromContext(ctx) == "" {
		ctx = WithConversationID(ctx, s.convID)
	}
	return s.inner.Execute(ctx, name, args)
}

// SetDebugLogger delegates to the underlying registry.
func (s *scopedRegistry) SetDebugLogger(w io.Writer) { s.inner.SetDebugLogger(w) }
