// Package orchestrator implements the Agentic Loop (spec §4.5): the per-
// request control flow tying the Permission Resolver, LM Adapter, MCP
// Registry, Thread Store and Audit Recorder together.
package orchestrator

// Source disambiguates where an inbound request originated (spec §6).
type Source struct {
	Channel   string
	MessageID string
	ThreadID  string
	Tag       string
}

// Request is one inbound chat request (spec §6: user-id, message,
// conversation-id?, source?). Role and permission overrides are resolved
// from the user registry by UserID, not supplied by the caller.
type Request struct {
	UserID         string
	Message        string
	ConversationID string
	Source         Source
}

// Usage mirrors the token accounting carried on an Audit Record.
type Usage struct {
	Input  int
	Output int
	Cached int
}

// Response is the outbound result of handling one Request (spec §6). Err,
// when set, is one of the sentinels in errors.go and lets callers branch
// with errors.Is/errors.As instead of matching Warning strings.
type Response struct {
	Success    bool
	Answer     string
	ToolCalls  int
	ToolsUsed  []string
	Iterations int
	Warning    string
	Err        error
	Cost       float64
	Usage      Usage
}
