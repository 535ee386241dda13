package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPTransport reaches an MCP over HTTP, calling its `list-tools` and
// `call-tool` operations (spec §6).
type HTTPTransport struct {
	name         string
	http         *resty.Client
	authSecretEnv string
}

// NewHTTPTransport builds an HTTPTransport for descriptor d.
func NewHTTPTransport(d Descriptor) *HTTPTransport {
	client := resty.New().
		SetBaseURL(d.Endpoint).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond)
	return &HTTPTransport{name: d.Name, http: client, authSecretEnv: d.AuthSecretEnv}
}

func (t *HTTPTransport) authHeader() string {
	if t.authSecretEnv == "" {
		return ""
	}
	return os.Getenv(t.authSecretEnv)
}

type wireToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type listToolsResponse struct {
	Tools []wireToolDef `json:"tools"`
}

func (t *HTTPTransport) ListTools(ctx context.Context) ([]Tool, error) {
	req := t.http.R().SetContext(ctx)
	if secret := t.authHeader(); secret != "" {
		req.SetHeader("Authorization", "Bearer "+secret)
	}
	var out listToolsResponse
	resp, err := req.SetResult(&out).Post("/list-tools")
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("mcp %s: list-tools transport error", t.name), Cause: err}
	}
	if resp.IsError() {
		return nil, &TransportError{Message: fmt.Sprintf("mcp %s: list-tools failed (%d): %s", t.name, resp.StatusCode(), strings.TrimSpace(resp.String()))}
	}
	tools := make([]Tool, 0, len(out.Tools))
	for _, wt := range out.Tools {
		tools = append(tools, Tool{Name: wt.Name, Description: wt.Description, InputSchema: wt.InputSchema, MCP: t.name})
	}
	return tools, nil
}

type callToolRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type callToolResponse struct {
	Result  json.RawMessage `json:"result"`
	IsError bool            `json:"isError"`
	Error   string          `json:"error"`
}

func (t *HTTPTransport) CallTool(ctx context.Context, tool string, args map[string]interface{}) (string, error) {
	req := t.http.R().SetContext(ctx)
	if secret := t.authHeader(); secret != "" {
		req.SetHeader("Authorization", "Bearer "+secret)
	}
	var out callToolResponse
	resp, err := req.SetBody(callToolRequest{Name: tool, Arguments: args}).SetResult(&out).Post("/call-tool")
	if err != nil {
		return "", &TransportError{Message: fmt.Sprintf("mcp %s: call-tool transport error", t.name), Cause: err}
	}
	if resp.IsError() {
		return "", &TransportError{Message: fmt.Sprintf("mcp %s: call-tool failed (%d): %s", t.name, resp.StatusCode(), strings.TrimSpace(resp.String()))}
	}
	if out.IsError {
		return "", &ToolError{Message: out.Error}
	}
	return string(out.Result), nil
}
