// Package tool defines the Allowed-Tools View-facing Registry contract used
// by the Agentic Loop, plus request-scoping and argument-validation helpers
// around it.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/viant/agentbridge/genai/llm"
)

// Registry is the read/execute surface the Agentic Loop needs over a
// resolved Allowed-Tools View. Concrete implementations adapt
// internal/mcp.Registry plus a permission.Resolver into this LM-facing
// shape.
type Registry interface {
	// Definitions returns every tool currently exposed to the LM.
	Definitions() []llm.ToolDefinition

	// MatchDefinition returns every known definition whose name matches a
	// glob pattern.
	MatchDefinition(pattern string) []*llm.ToolDefinition

	// GetDefinition looks up one definition by its exact canonical name.
	GetDefinition(name string) (*llm.ToolDefinition, bool)

	// MustHaveTools resolves patterns to concrete llm.Tool declarations,
	// erroring if any pattern matches nothing.
	MustHaveTools(patterns []string) ([]llm.Tool, error)

	// Execute invokes a tool by canonical name and returns its result text
	// or an error. Implementations must not panic on tool-level failures;
	// see internal/mcp.ToolError vs internal/mcp.TransportError.
	Execute(ctx context.Context, name string, args map[string]interface{}) (string, error)

	// SetDebugLogger attaches an optional sink for verbose tool-call
	// tracing.
	SetDebugLogger(w io.Writer)
}

// ContextMatcher is implemented by registries whose match results can be
// refined using request-scoped context (e.g. a per-conversation Allowed-Tools
// View already computed by the permission resolver).
type ContextMatcher interface {
	MatchDefinitionWithContext(ctx context.Context, pattern string) []*llm.ToolDefinition
}

// UnmarshalArguments parses JSON-encoded tool-call arguments into a map.
func UnmarshalArguments(raw json.RawMessage) (map[string]interface{}, error) {
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}
