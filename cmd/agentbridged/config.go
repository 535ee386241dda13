package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/viant/agentbridge/internal/mcp"
	"github.com/viant/agentbridge/internal/permission"
)

// MCPConfig is the on-disk shape of one MCP registry entry (spec §6:
// "reloadable without restart"); mcps.yaml holds a list of them under the
// "mcps" key.
type MCPConfig struct {
	Name          string   `yaml:"name"`
	Transport     string   `yaml:"transport"` // "http" or "stdio"
	Endpoint      string   `yaml:"endpoint"`
	Args          []string `yaml:"args,omitempty"`
	Enabled       bool     `yaml:"enabled"`
	AuthSecretEnv string   `yaml:"authSecretEnv,omitempty"`
	Policy        struct {
		Mode string   `yaml:"mode"`
		List []string `yaml:"list,omitempty"`
	} `yaml:"policy"`
}

func (c MCPConfig) toDescriptor() mcp.Descriptor {
	kind := mcp.TransportHTTP
	if c.Transport == "stdio" {
		kind = mcp.TransportStdio
	}
	return mcp.Descriptor{
		Name:          c.Name,
		Transport:     kind,
		Endpoint:      c.Endpoint,
		Args:          c.Args,
		Enabled:       c.Enabled,
		AuthSecretEnv: c.AuthSecretEnv,
		Policy:        permission.ToolPolicy{Mode: c.Policy.Mode, List: c.Policy.List},
	}
}

// RoleConfig is the on-disk shape of one entry in the user registry's role
// table.
type RoleConfig struct {
	Name      string   `yaml:"name"`
	Ceiling   int      `yaml:"ceiling"`
	Unlimited bool     `yaml:"unlimited"`
	MCPs      []string `yaml:"mcps,omitempty"` // empty means every enabled MCP
}

func (c RoleConfig) toRole() permission.Role {
	var gate map[string]bool
	if len(c.MCPs) > 0 {
		gate = make(map[string]bool, len(c.MCPs))
		for _, m := range c.MCPs {
			gate[m] = true
		}
	}
	return permission.Role{Name: c.Name, Ceiling: c.Ceiling, Unlimited: c.Unlimited, MCPs: gate}
}

// UserRegistryConfig is the on-disk shape of the user registry (spec §6:
// "reloadable without restart"): roles plus per-user overrides.
type UserRegistryConfig struct {
	Roles []RoleConfig `yaml:"roles"`
	Users []struct {
		ID        string `yaml:"id"`
		Role      string `yaml:"role"`
		Overrides map[string]struct {
			Mode  string   `yaml:"mode"`
			Tools []string `yaml:"tools,omitempty"`
		} `yaml:"overrides,omitempty"`
	} `yaml:"users"`
}

func loadMCPConfigs(path string) ([]mcp.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		MCPs []MCPConfig `yaml:"mcps"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	descs := make([]mcp.Descriptor, 0, len(raw.MCPs))
	for _, c := range raw.MCPs {
		descs = append(descs, c.toDescriptor())
	}
	return descs, nil
}

func loadRoles(path string) (map[string]permission.Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg UserRegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	roles := make(map[string]permission.Role, len(cfg.Roles))
	for _, r := range cfg.Roles {
		roles[r.Name] = r.toRole()
	}
	return roles, nil
}

func loadUsers(path string) (map[string]permission.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg UserRegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	users := make(map[string]permission.User, len(cfg.Users))
	for _, u := range cfg.Users {
		overrides := make(map[string]permission.Override, len(u.Overrides))
		for mcpName, o := range u.Overrides {
			overrides[mcpName] = permission.Override{Mode: o.Mode, Tools: o.Tools}
		}
		users[u.ID] = permission.User{ID: u.ID, Role: u.Role, Overrides: overrides}
	}
	return users, nil
}
