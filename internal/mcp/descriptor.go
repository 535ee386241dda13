// Package mcp implements the MCP Registry & Client (spec §4.1): a held set
// of enabled MCP descriptors, a Tool-Schema Cache refreshed by periodic
// discovery, a health state machine per MCP, and a transport-agnostic
// invocation path that distinguishes transport failures from tool-level
// ones.
package mcp

import "github.com/viant/agentbridge/internal/permission"

// TransportKind selects how a Descriptor's endpoint is reached.
type TransportKind string

const (
	TransportHTTP  TransportKind = "http"
	TransportStdio TransportKind = "stdio"
)

// Descriptor is spec §3's MCP Descriptor.
type Descriptor struct {
	Name         string
	Transport    TransportKind
	Endpoint     string // base URL for TransportHTTP, command for TransportStdio
	Args         []string // extra argv for TransportStdio
	Enabled      bool
	AuthSecretEnv string // env var holding the bearer token/header secret
	Policy       permission.ToolPolicy
}

// ToPermissionMCP projects a Descriptor into the permission package's view of
// an MCP, keeping the two packages decoupled from each other's full shape.
func (d Descriptor) ToPermissionMCP() permission.MCPDescriptor {
	return permission.MCPDescriptor{Name: d.Name, Enabled: d.Enabled, Policy: d.Policy}
}
