package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
)

// StdioTransport reaches an MCP spawned as a child process communicating via
// newline-delimited JSON over stdin/stdout, for MCPs that expose no network
// endpoint (spec §6: MCPs "grouped by transport (HTTP, streaming,
// standard-IO)").
type StdioTransport struct {
	name string
	cmd  string
	args []string

	mu      sync.Mutex
	proc    *exec.Cmd
	stdin   *bufio.Writer
	stdout  *bufio.Reader
	started bool
}

// NewStdioTransport builds a StdioTransport for descriptor d. The child
// process is started lazily on first use.
func NewStdioTransport(d Descriptor) *StdioTransport {
	return &StdioTransport{name: d.Name, cmd: d.Endpoint, args: d.Args}
}

func (t *StdioTransport) ensureStarted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}
	cmd := exec.Command(t.cmd, t.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mcp %s: stdin pipe: %w", t.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("mcp %s: stdout pipe: %w", t.name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mcp %s: start: %w", t.name, err)
	}
	t.proc = cmd
	t.stdin = bufio.NewWriter(stdin)
	t.stdout = bufio.NewReader(stdout)
	t.started = true
	return nil
}

type stdioRequest struct {
	Op        string                 `json:"op"`
	Name      string                 `json:"name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type stdioResponse struct {
	Tools   []wireToolDef   `json:"tools,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	IsError bool            `json:"isError,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (t *StdioTransport) roundTrip(ctx context.Context, req stdioRequest) (stdioResponse, error) {
	if err := t.ensureStarted(); err != nil {
		return stdioResponse{}, &TransportError{Message: err.Error(), Cause: err}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	line, err := json.Marshal(req)
	if err != nil {
		return stdioResponse{}, &TransportError{Message: fmt.Sprintf("mcp %s: encode request", t.name), Cause: err}
	}
	if _, err := t.stdin.Write(append(line, '\n')); err != nil {
		return stdioResponse{}, &TransportError{Message: fmt.Sprintf("mcp %s: write request", t.name), Cause: err}
	}
	if err := t.stdin.Flush(); err != nil {
		return stdioResponse{}, &TransportError{Message: fmt.Sprintf("mcp %s: flush request", t.name), Cause: err}
	}

	respLine, err := t.stdout.ReadBytes('\n')
	if err != nil {
		return stdioResponse{}, &TransportError{Message: fmt.Sprintf("mcp %s: read response", t.name), Cause: err}
	}
	var resp stdioResponse
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return stdioResponse{}, &TransportError{Message: fmt.Sprintf("mcp %s: decode response", t.name), Cause: err}
	}
	return resp, nil
}

func (t *StdioTransport) ListTools(ctx context.Context) ([]Tool, error) {
	resp, err := t.roundTrip(ctx, stdioRequest{Op: "list-tools"})
	if err != nil {
		return nil, err
	}
	tools := make([]Tool, 0, len(resp.Tools))
	for _, wt := range resp.Tools {
		tools = append(tools, Tool{Name: wt.Name, Description: wt.Description, InputSchema: wt.InputSchema, MCP: t.name})
	}
	return tools, nil
}

func (t *StdioTransport) CallTool(ctx context.Context, tool string, args map[string]interface{}) (string, error) {
	resp, err := t.roundTrip(ctx, stdioRequest{Op: "call-tool", Name: tool, Arguments: args})
	if err != nil {
		return "", err
	}
	if resp.IsError {
		return "", &ToolError{Message: resp.Error}
	}
	return string(resp.Result), nil
}
