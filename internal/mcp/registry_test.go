package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTransport struct {
	tools   []Tool
	failing bool
	calls   int
}

func (f *fakeTransport) ListTools(ctx context.Context) ([]Tool, error) {
	f.calls++
	if f.failing {
		return nil, &TransportError{Message: "boom"}
	}
	return f.tools, nil
}

func (f *fakeTransport) CallTool(ctx context.Context, tool string, args map[string]interface{}) (string, error) {
	if tool == "fails" {
		return "", &ToolError{Message: "tool failed"}
	}
	return "ok", nil
}

func TestRegistryRefreshPopulatesCatalog(t *testing.T) {
	r := NewRegistry(nil, Options{})
	ft := &fakeTransport{tools: []Tool{{Name: "t1", MCP: "svc"}}}
	r.entries["svc"] = &entry{descriptor: Descriptor{Name: "svc", Enabled: true}, transport: ft}
	r.order = []string{"svc"}

	tools := r.Catalog(context.Background(), "svc")
	assert.Len(t, tools, 1)
	assert.Equal(t, StatusHealthy, r.Health("svc"))
}

func TestRegistryRetainsStaleCatalogOnFailure(t *testing.T) {
	r := NewRegistry(nil, Options{TTL: time.Millisecond})
	ft := &fakeTransport{tools: []Tool{{Name: "t1", MCP: "svc"}}}
	r.entries["svc"] = &entry{descriptor: Descriptor{Name: "svc", Enabled: true}, transport: ft}
	r.order = []string{"svc"}

	first := r.Catalog(context.Background(), "svc")
	assert.Len(t, first, 1)

	ft.failing = true
	time.Sleep(2 * time.Millisecond)
	second := r.Catalog(context.Background(), "svc")
	assert.Len(t, second, 1, "stale catalog should continue serving after a failed refresh")
	assert.Equal(t, StatusUnhealthy, r.Health("svc"))
}

func TestRegistryCallToolDistinguishesFailureKinds(t *testing.T) {
	r := NewRegistry(nil, Options{})
	ft := &fakeTransport{}
	r.entries["svc"] = &entry{descriptor: Descriptor{Name: "svc", Enabled: true}, transport: ft}
	r.order = []string{"svc"}

	_, err := r.CallTool(context.Background(), "svc", "fails", nil)
	assert.Error(t, err)
	_, isToolErr := err.(*ToolError)
	assert.True(t, isToolErr)
	assert.Equal(t, StatusUnknown, r.Health("svc"), "tool-level failure must not affect MCP health")

	_, err = r.CallTool(context.Background(), "svc", "ok", nil)
	assert.NoError(t, err)
}

func TestRegistryUnknownMCPCallToolTransportError(t *testing.T) {
	r := NewRegistry(nil, Options{})
	_, err := r.CallTool(context.Background(), "missing", "tool", nil)
	assert.Error(t, err)
	_, isTransportErr := err.(*TransportError)
	assert.True(t, isTransportErr)
}
