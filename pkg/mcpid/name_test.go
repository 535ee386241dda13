package mcpid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	testCases := []struct {
		description string
		raw         string
		expect      Name
	}{
		{"already canonical", "github__create_issue", "github__create_issue"},
		{"dot separated", "github.create_issue", "github__create_issue"},
		{"colon separated", "github:create_issue", "github__create_issue"},
		{"dash separated", "github-create_issue", "github__create_issue"},
		{"slash separated", "github/create_issue", "github__create_issue"},
		{"no separator", "github", "github"},
	}
	for _, tc := range testCases {
		actual := Canonical(tc.raw)
		assert.Equal(t, tc.expect, actual, tc.description)
	}
}

func TestNameParts(t *testing.T) {
	n := New("github", "create_issue")
	assert.Equal(t, "github", n.MCP())
	assert.Equal(t, "create_issue", n.Tool())
	assert.Equal(t, "github__create_issue", n.String())
}

func TestNamePartsNoTool(t *testing.T) {
	n := Canonical("github")
	assert.Equal(t, "github", n.MCP())
	assert.Equal(t, "", n.Tool())
}
