// Package permission implements the Permission Resolver: the pure,
// idempotent evaluation of a per-(user, MCP, tool) access decision (spec
// §4.2), plus a singleflight-coalesced TTL cache around it so that repeated
// requests from the same user within the cache window avoid recomputation.
package permission

// Override mode values for a user's per-MCP permission override block.
const (
	OverrideAll      = "all"
	OverrideCustom   = "custom"
	OverrideInherit  = "inherit"
)

// Tool policy mode values carried on an MCP descriptor.
const (
	PolicyAllowAll       = "allow_all"
	PolicyAllowOnly      = "allow_only"
	PolicyAllowAllExcept = "allow_all_except"
)

// Decision reason values.
const (
	ReasonRoleDefault         = "role_default"
	ReasonUserOverride        = "user_override"
	ReasonMCPDisabled         = "mcp_disabled"
	ReasonMCPPolicyExcluded   = "mcp_policy_excluded"
	ReasonUserPolicyExcluded  = "user_policy_excluded"
	ReasonUnknownTool         = "unknown_tool"
)

// DefaultUserID is the principal used when a request arrives for an unknown
// user.
const DefaultUserID = "default_user"

// Override is a user's per-MCP permission override block.
type Override struct {
	Mode  string
	Tools []string // glob patterns, meaningful when Mode == OverrideCustom
}

// User is the subset of spec §3's User needed for permission resolution.
type User struct {
	ID        string
	Role      string
	Overrides map[string]Override // key: MCP name
}

// Role carries a rate ceiling and default MCP access set. Ceiling<=0 with
// Unlimited=false means "no access by role default" (not unlimited).
type Role struct {
	Name      string
	Ceiling   int
	Unlimited bool
	MCPs      map[string]bool // MCPs this role may access by default; nil/empty means all
}

// ToolPolicy is an MCP's default tool_policy.
type ToolPolicy struct {
	Mode string
	List []string // glob patterns
}

// MCPDescriptor is the subset of spec §3's MCP Descriptor needed here.
type MCPDescriptor struct {
	Name    string
	Enabled bool
	Policy  ToolPolicy
}

// Tool identifies a candidate tool belonging to an MCP.
type Tool struct {
	Name string
	MCP  string
}

// Decision is the outcome of evaluating one (user, tool) pair.
type Decision struct {
	Allowed bool
	Reason  string
}
