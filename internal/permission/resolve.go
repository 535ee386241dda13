package permission

// Resolve evaluates the 5-step access decision for one candidate tool
// belonging to mcp, for user acting under role. It is a pure function of its
// inputs (spec §4.2: "purely a function of inputs and configuration
// snapshot").
func Resolve(user User, role Role, mcp MCPDescriptor, tool Tool) Decision {
	// Step 1: MCP must be enabled.
	if !mcp.Enabled {
		return Decision{Allowed: false, Reason: ReasonMCPDisabled}
	}

	if override, ok := user.Overrides[mcp.Name]; ok {
		switch override.Mode {
		case OverrideAll:
			// Step 2.
			return Decision{Allowed: true, Reason: ReasonUserOverride}
		case OverrideCustom:
			// Step 3.
			if anyMatch(override.Tools, tool.Name) {
				return Decision{Allowed: true, Reason: ReasonUserOverride}
			}
			return Decision{Allowed: false, Reason: ReasonUserPolicyExcluded}
		}
		// OverrideInherit falls through to step 4.
	}

	// Role defaults may restrict which MCPs are reachable at all, ahead of
	// the MCP's own tool_policy.
	if len(role.MCPs) > 0 && !role.MCPs[mcp.Name] {
		return Decision{Allowed: false, Reason: ReasonRoleDefault}
	}

	// Step 4: apply the MCP's tool_policy.
	switch mcp.Policy.Mode {
	case PolicyAllowAll:
		return Decision{Allowed: true, Reason: ReasonRoleDefault}
	case PolicyAllowOnly:
		if anyMatch(mcp.Policy.List, tool.Name) {
			return Decision{Allowed: true, Reason: ReasonRoleDefault}
		}
		return Decision{Allowed: false, Reason: ReasonMCPPolicyExcluded}
	case PolicyAllowAllExcept:
		if anyMatch(mcp.Policy.List, tool.Name) {
			return Decision{Allowed: false, Reason: ReasonMCPPolicyExcluded}
		}
		return Decision{Allowed: true, Reason: ReasonRoleDefault}
	}

	// Step 5: no applicable rule.
	return Decision{Allowed: false, Reason: ReasonMCPPolicyExcluded}
}

// EffectiveUser substitutes DefaultUserID when user.ID is empty, per spec
// §4.2's "unknown users fall back to a default_user principal".
func EffectiveUser(user User) User {
	if user.ID == "" {
		user.ID = DefaultUserID
	}
	return user
}

// AllowedTools derives the deterministic Allowed-Tools View for one user
// across a set of MCPs and their discovered catalogs. Ordering follows the
// order of mcps, then catalog order within each MCP, with no duplicates —
// matching spec §3's Allowed-Tools View invariant.
func AllowedTools(user User, role Role, mcps []MCPDescriptor, catalogs map[string][]Tool) []Tool {
	user = EffectiveUser(user)
	seen := map[string]bool{}
	var out []Tool
	for _, mcp := range mcps {
		for _, tool := range catalogs[mcp.Name] {
			decision := Resolve(user, role, mcp, tool)
			if !decision.Allowed {
				continue
			}
			key := mcp.Name + "\x00" + tool.Name
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, tool)
		}
	}
	return out
}
