package permission

import "strings"

// canon normalizes a tool name/pattern so "." ":" "/" "-" separator styles
// compare equal, mirroring the normalization the tool-name matcher this
// package is grounded on applies before comparison.
func canon(s string) string {
	s = strings.TrimSpace(s)
	r := strings.NewReplacer(".", "_", ":", "_", "/", "_", "-", "_")
	return r.Replace(s)
}

// MatchTool reports whether a tool name matches a glob pattern, using the
// same semantics the resolver applies to user-override and MCP tool_policy
// lists. Exported so other packages (e.g. the LM-facing tool registry view)
// apply identical matching rules without duplicating the glob algorithm.
func MatchTool(pattern, name string) bool {
	return matchGlob(pattern, name)
}

// matchGlob reports whether name matches pattern, where "*" in pattern
// matches any character sequence (spec §4.2: "Patterns are globs with `*`
// matching any character sequence").
func matchGlob(pattern, name string) bool {
	p := canon(pattern)
	n := canon(name)
	if p == "*" {
		return true
	}
	if !strings.Contains(p, "*") {
		return p == n
	}
	return globMatch(p, n)
}

// globMatch is a minimal '*'-only glob matcher (no '?' or character classes).
func globMatch(pattern, s string) bool {
	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return segments[0] == s
	}
	if !strings.HasPrefix(s, segments[0]) {
		return false
	}
	s = s[len(segments[0]):]
	last := len(segments) - 1
	for i := 1; i < last; i++ {
		seg := segments[i]
		if seg == "" {
			continue
		}
		idx := strings.Index(s, seg)
		if idx < 0 {
			return false
		}
		s = s[idx+len(seg):]
	}
	return strings.HasSuffix(s, segments[last])
}

// anyMatch reports whether name matches any pattern in patterns.
func anyMatch(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchGlob(p, name) {
			return true
		}
	}
	return false
}
