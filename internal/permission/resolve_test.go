package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMCPDisabled(t *testing.T) {
	d := Resolve(User{ID: "u1"}, Role{}, MCPDescriptor{Name: "github", Enabled: false}, Tool{Name: "create_issue"})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMCPDisabled, d.Reason)
}

func TestResolveUserOverrideAll(t *testing.T) {
	user := User{ID: "u1", Overrides: map[string]Override{"github": {Mode: OverrideAll}}}
	d := Resolve(user, Role{}, MCPDescriptor{Name: "github", Enabled: true, Policy: ToolPolicy{Mode: PolicyAllowAllExcept, List: []string{"*"}}}, Tool{Name: "create_issue"})
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonUserOverride, d.Reason)
}

func TestResolveUserOverrideCustomMatch(t *testing.T) {
	user := User{ID: "u1", Overrides: map[string]Override{"github": {Mode: OverrideCustom, Tools: []string{"create_*"}}}}
	mcp := MCPDescriptor{Name: "github", Enabled: true, Policy: ToolPolicy{Mode: PolicyAllowAllExcept}}
	allowed := Resolve(user, Role{}, mcp, Tool{Name: "create_issue"})
	denied := Resolve(user, Role{}, mcp, Tool{Name: "delete_issue"})
	assert.True(t, allowed.Allowed)
	assert.False(t, denied.Allowed)
	assert.Equal(t, ReasonUserPolicyExcluded, denied.Reason)
}

func TestResolveMCPAllowOnly(t *testing.T) {
	mcp := MCPDescriptor{Name: "jira", Enabled: true, Policy: ToolPolicy{Mode: PolicyAllowOnly, List: []string{"read_*"}}}
	allowed := Resolve(User{ID: "u1"}, Role{}, mcp, Tool{Name: "read_issue"})
	denied := Resolve(User{ID: "u1"}, Role{}, mcp, Tool{Name: "write_issue"})
	assert.True(t, allowed.Allowed)
	assert.False(t, denied.Allowed)
	assert.Equal(t, ReasonMCPPolicyExcluded, denied.Reason)
}

func TestResolveMCPAllowAllExcept(t *testing.T) {
	mcp := MCPDescriptor{Name: "jira", Enabled: true, Policy: ToolPolicy{Mode: PolicyAllowAllExcept, List: []string{"delete_*"}}}
	allowed := Resolve(User{ID: "u1"}, Role{}, mcp, Tool{Name: "read_issue"})
	denied := Resolve(User{ID: "u1"}, Role{}, mcp, Tool{Name: "delete_issue"})
	assert.True(t, allowed.Allowed)
	assert.False(t, denied.Allowed)
}

func TestResolveRoleMCPGate(t *testing.T) {
	role := Role{Name: "read_only", MCPs: map[string]bool{"jira": true}}
	mcp := MCPDescriptor{Name: "github", Enabled: true, Policy: ToolPolicy{Mode: PolicyAllowAll}}
	d := Resolve(User{ID: "u1"}, role, mcp, Tool{Name: "create_issue"})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRoleDefault, d.Reason)
}

func TestEffectiveUserFallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultUserID, EffectiveUser(User{}).ID)
}

func TestAllowedToolsDeterministicNoDuplicates(t *testing.T) {
	mcps := []MCPDescriptor{
		{Name: "github", Enabled: true, Policy: ToolPolicy{Mode: PolicyAllowAll}},
		{Name: "jira", Enabled: false, Policy: ToolPolicy{Mode: PolicyAllowAll}},
	}
	catalogs := map[string][]Tool{
		"github": {{Name: "create_issue", MCP: "github"}, {Name: "create_issue", MCP: "github"}},
		"jira":   {{Name: "read_issue", MCP: "jira"}},
	}
	tools := AllowedTools(User{ID: "u1"}, Role{}, mcps, catalogs)
	assert.Len(t, tools, 1)
	assert.Equal(t, "create_issue", tools[0].Name)
}
