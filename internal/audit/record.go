package audit

import "time"

// Status values for a completed request, per spec §7.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusWarning = "warning"
)

// Record is one immutable audit record per request (spec §3, layout in §6).
type Record struct {
	ID              string
	UserID          string
	Message         string
	Iterations      int
	ToolCallsCount  int
	ToolsUsed       []string
	MCPsAccessed    []string
	TokensInput     int
	TokensOutput    int
	TokensCached    int
	CostEstimate    float64
	Status          string
	Warning         string
	DurationMS      int64
	SourceTag       string
	ConversationRef string
	CreatedAt       time.Time
}
