package mcp

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/viant/agentbridge/genai/llm"
	"github.com/viant/agentbridge/genai/tool"
	"github.com/viant/agentbridge/internal/permission"
	"github.com/viant/agentbridge/pkg/mcpid"
)

// ViewRegistry adapts a Registry plus one request's already-resolved
// Allowed-Tools View into the genai/tool.Registry shape the Agentic Loop
// consumes. One instance is built per request so that the tool surface the
// LM sees never exceeds what the Permission Resolver granted.
type ViewRegistry struct {
	reg   *Registry
	tools []Tool
	debug io.Writer
}

var _ tool.Registry = (*ViewRegistry)(nil)
var _ tool.ContextMatcher = (*ViewRegistry)(nil)

// NewViewRegistry builds a ViewRegistry scoped to tools.
func NewViewRegistry(reg *Registry, tools []Tool) *ViewRegistry {
	return &ViewRegistry{reg: reg, tools: tools}
}

func (v *ViewRegistry) canonicalName(t Tool) string {
	return mcpid.New(t.MCP, t.Name).String()
}

func (v *ViewRegistry) toDefinition(t Tool) llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        v.canonicalName(t),
		Description: t.Description,
		Parameters:  t.InputSchema,
	}
}

// Definitions returns every tool in this request's Allowed-Tools View.
func (v *ViewRegistry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(v.tools))
	for _, t := range v.tools {
		defs = append(defs, v.toDefinition(t))
	}
	return defs
}

// MatchDefinition returns every allowed definition whose canonical name
// matches a glob pattern (reusing the permission package's glob semantics so
// a tool-name pattern means the same thing everywhere in this module).
func (v *ViewRegistry) MatchDefinition(pattern string) []*llm.ToolDefinition {
	var out []*llm.ToolDefinition
	for _, t := range v.tools {
		if matchName(pattern, v.canonicalName(t)) {
			def := v.toDefinition(t)
			out = append(out, &def)
		}
	}
	return out
}

// GetDefinition looks up one allowed tool by its exact canonical name.
func (v *ViewRegistry) GetDefinition(name string) (*llm.ToolDefinition, bool) {
	for _, t := range v.tools {
		if v.canonicalName(t) == name {
			def := v.toDefinition(t)
			return &def, true
		}
	}
	return nil, false
}

// MustHaveTools resolves patterns to concrete llm.Tool declarations, one per
// matching allowed definition. An unmatched pattern is an error.
func (v *ViewRegistry) MustHaveTools(patterns []string) ([]llm.Tool, error) {
	var out []llm.Tool
	for _, p := range patterns {
		matches := v.MatchDefinition(p)
		if len(matches) == 0 {
			return nil, fmt.Errorf("mcp: no allowed tool matches pattern %q", p)
		}
		for _, def := range matches {
			out = append(out, llm.NewFunctionTool(*def))
		}
	}
	return out, nil
}

// MatchDefinitionWithContext satisfies tool.ContextMatcher; the Allowed-Tools
// View is already request-scoped, so it behaves identically to
// MatchDefinition regardless of ctx.
func (v *ViewRegistry) MatchDefinitionWithContext(ctx context.Context, pattern string) []*llm.ToolDefinition {
	return v.MatchDefinition(pattern)
}

// Execute dispatches a canonical "<mcp>__<tool>" call to the underlying
// Registry, enforcing that the target is actually in this request's
// Allowed-Tools View and that args satisfy the tool's declared schema
// before the call ever reaches the transport.
func (v *ViewRegistry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	n := mcpid.Canonical(name)
	def, ok := v.GetDefinition(n.String())
	if !ok {
		return "", fmt.Errorf("mcp: tool %q is not permitted for this request", name)
	}
	fixed, problems := tool.ValidateArgs(*def, args)
	if len(problems) > 0 {
		reasons := make([]string, len(problems))
		for i, p := range problems {
			reasons[i] = fmt.Sprintf("%s: %s", p.Name, p.Reason)
		}
		return "", fmt.Errorf("mcp: invalid arguments for %q: %s", name, strings.Join(reasons, "; "))
	}
	return v.reg.CallTool(ctx, n.MCP(), n.Tool(), fixed)
}

// SetDebugLogger attaches a writer that receives tool-call tracing.
func (v *ViewRegistry) SetDebugLogger(w io.Writer) {
	v.debug = w
}

func matchName(pattern, name string) bool {
	return permission.MatchTool(pattern, name)
}
