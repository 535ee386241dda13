package orchestrator

import (
	"context"
	"sync"

	"github.com/viant/agentbridge/internal/mcp"
	"github.com/viant/agentbridge/internal/permission"
)

// Snapshot adapts a live mcp.Registry plus a role table into
// permission.Snapshot, so the resolver always evaluates against the
// registry's current descriptors/catalogs without the two packages knowing
// about each other's concrete types.
type Snapshot struct {
	registry *mcp.Registry

	mu      sync.RWMutex
	roles   map[string]permission.Role
	version string
}

// NewSnapshot builds a Snapshot backed by registry and an initial role
// table.
func NewSnapshot(registry *mcp.Registry, roles map[string]permission.Role) *Snapshot {
	return &Snapshot{registry: registry, roles: roles, version: "v1"}
}

// SetRoles hot-swaps the role table (spec §6: the user registry is
// "reloadable without restart"). Bumping the version invalidates every
// cached permission decision computed against the old table.
func (s *Snapshot) SetRoles(roles map[string]permission.Role, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = roles
	s.version = version
}

func (s *Snapshot) Role(name string) (permission.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[name]
	return r, ok
}

func (s *Snapshot) MCPs() []permission.MCPDescriptor {
	descs := s.registry.Descriptors()
	out := make([]permission.MCPDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.ToPermissionMCP())
	}
	return out
}

func (s *Snapshot) Catalog(mcpName string) []permission.Tool {
	tools := s.registry.Catalog(context.Background(), mcpName)
	out := make([]permission.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, permission.Tool{Name: t.Name, MCP: t.MCP})
	}
	return out
}

func (s *Snapshot) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
