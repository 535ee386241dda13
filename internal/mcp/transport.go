package mcp

import "context"

// ToolError is returned by Transport.CallTool when the MCP itself reported a
// tool-level failure (the call reached the MCP and it ran, but the tool
// returned an error payload). It is distinct from a transport error and must
// not affect MCP health (spec §4.1, §7: tool_execution_error).
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string { return e.Message }

// TransportError wraps a network/auth-level failure reaching the MCP at
// all. It affects MCP health (spec §7: mcp_transport_error).
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string { return e.Message }
func (e *TransportError) Unwrap() error { return e.Cause }

// Transport is the wire-level contract every MCP connection implements,
// regardless of whether it is reached over HTTP, a streaming channel, or
// standard I/O (spec §6: "all funnel through one internal client
// interface").
type Transport interface {
	// ListTools discovers the MCP's current tool catalog. A non-nil error is
	// always a *TransportError.
	ListTools(ctx context.Context) ([]Tool, error)

	// CallTool invokes one tool by name with structured arguments. A
	// *ToolError return means the call reached the MCP and failed at the
	// tool level; any other error is a *TransportError.
	CallTool(ctx context.Context, tool string, args map[string]interface{}) (string, error)
}
