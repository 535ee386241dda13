package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/agentbridge/genai/llm"
	"github.com/viant/agentbridge/genai/llm/provider/base"
	"github.com/viant/agentbridge/internal/audit"
	"github.com/viant/agentbridge/internal/mcp"
	"github.com/viant/agentbridge/internal/permission"
	"github.com/viant/agentbridge/internal/ratelimit"
	"github.com/viant/agentbridge/internal/thread"
)

// fakeAdapter scripts a sequence of responses, one per call to Generate.
// errs, when set for a given call index, is returned instead of the
// corresponding response (and consumes that slot). delay, when non-zero,
// makes Generate block until delay elapses or ctx is cancelled, so tests
// can exercise the per-request timeout path without a real slow backend.
type fakeAdapter struct {
	responses []*llm.GenerateResponse
	errs      map[int]error
	delay     time.Duration
	calls     int
}

func (f *fakeAdapter) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	idx := f.calls
	f.calls++
	if err, ok := f.errs[idx]; ok {
		return nil, err
	}
	if idx >= len(f.responses) {
		return &llm.GenerateResponse{Choices: []llm.Choice{{Message: llm.NewAssistantMessage("done")}}}, nil
	}
	return f.responses[idx], nil
}

func (f *fakeAdapter) Implements(feature string) bool {
	return feature == base.CanExecToolsInParallel
}

func (f *fakeAdapter) BuildSystemBlock(tools []llm.Tool, userProfile string) llm.Message {
	return llm.NewSystemMessage("system")
}

func (f *fakeAdapter) Cost(usage *llm.Usage) float64 {
	if usage == nil {
		return 0
	}
	return float64(usage.PromptTokens+usage.CompletionTokens) * 0.000001
}

type fakePersister struct {
	records []audit.Record
}

func (f *fakePersister) Persist(ctx context.Context, rec audit.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/list-tools", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tools": []map[string]interface{}{
				{"name": "search", "description": "search the web", "inputSchema": map[string]interface{}{}},
			},
		})
	})
	mux.HandleFunc("/call-tool", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": json.RawMessage(`"ok"`)})
	})
	return httptest.NewServer(mux)
}

func newTestLoop(t *testing.T, adapter llm.Adapter, ceiling int, unlimited bool) (*Loop, *fakePersister, *httptest.Server) {
	server := newTestServer(t)
	registry := mcp.NewRegistry([]mcp.Descriptor{
		{Name: "web", Transport: mcp.TransportHTTP, Endpoint: server.URL, Enabled: true, Policy: permission.ToolPolicy{Mode: permission.PolicyAllowAll}},
	}, mcp.Options{})

	roles := map[string]permission.Role{
		"member": {Name: "member", Ceiling: ceiling, Unlimited: unlimited},
	}
	snapshot := NewSnapshot(registry, roles)
	resolver := permission.NewResolver(snapshot, permission.Options{})
	threads := thread.NewStore(3, time.Hour)
	limiter := ratelimit.New(ratelimit.Window)
	persister := &fakePersister{}
	recorder := audit.New(persister, audit.Options{})

	users := func(id string) permission.User { return permission.User{ID: id, Role: "member"} }
	loop := New(snapshot, resolver, registry, adapter, threads, limiter, recorder, Options{Users: users})
	return loop, persister, server
}

func TestHandleRateLimited(t *testing.T) {
	loop, persister, server := newTestLoop(t, &fakeAdapter{}, 0, false)
	defer server.Close()
	defer loop.recorder.Stop()

	resp := loop.Handle(context.Background(), Request{UserID: "u1", Message: "hi"})

	assert.False(t, resp.Success)
	assert.Equal(t, "rate_limited", resp.Warning)
	assert.Eventually(t, func() bool { return len(persister.records) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, audit.StatusError, persister.records[0].Status)
}

func TestHandleSuccessNoToolCalls(t *testing.T) {
	adapter := &fakeAdapter{responses: []*llm.GenerateResponse{
		{Choices: []llm.Choice{{Message: llm.NewAssistantMessage("the answer")}}, Usage: &llm.Usage{PromptTokens: 10, CompletionTokens: 5}},
	}}
	loop, persister, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	resp := loop.Handle(context.Background(), Request{UserID: "u1", Message: "hi", ConversationID: "c1"})

	require.True(t, resp.Success)
	assert.Equal(t, "the answer", resp.Answer)
	assert.Equal(t, 1, resp.Iterations)
	assert.Equal(t, 0, resp.ToolCalls)
	assert.Eventually(t, func() bool { return len(persister.records) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, audit.StatusSuccess, persister.records[0].Status)
	assert.Equal(t, 10, persister.records[0].TokensInput)
}

func TestHandleToolCallThenAnswer(t *testing.T) {
	call := llm.NewToolCall("1", "web__search", map[string]interface{}{"q": "go"})
	adapter := &fakeAdapter{responses: []*llm.GenerateResponse{
		{Choices: []llm.Choice{{Message: llm.NewAssistantMessageWithToolCalls(call)}}},
		{Choices: []llm.Choice{{Message: llm.NewAssistantMessage("found it")}}},
	}}
	loop, persister, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	resp := loop.Handle(context.Background(), Request{UserID: "u1", Message: "search go"})

	require.True(t, resp.Success)
	assert.Equal(t, "found it", resp.Answer)
	assert.Equal(t, 2, resp.Iterations)
	assert.Equal(t, 1, resp.ToolCalls)
	assert.Equal(t, []string{"web__search"}, resp.ToolsUsed)
	assert.Eventually(t, func() bool { return len(persister.records) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"web"}, persister.records[0].MCPsAccessed)
}

func TestHandleMaxIterationsReached(t *testing.T) {
	call := llm.NewToolCall("1", "web__search", map[string]interface{}{"q": "go"})
	var responses []*llm.GenerateResponse
	for i := 0; i < MaxIterations+2; i++ {
		responses = append(responses, &llm.GenerateResponse{Choices: []llm.Choice{{Message: llm.NewAssistantMessageWithToolCalls(call)}}})
	}
	adapter := &fakeAdapter{responses: responses}
	loop, persister, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	resp := loop.Handle(context.Background(), Request{UserID: "u1", Message: "loop forever"})

	assert.False(t, resp.Success)
	assert.Equal(t, "max_iterations_reached", resp.Warning)
	assert.Equal(t, MaxIterations, resp.Iterations)
	assert.Eventually(t, func() bool { return len(persister.records) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, audit.StatusWarning, persister.records[0].Status)
}

func TestHandleDeniedToolInjectsNotPermitted(t *testing.T) {
	call := llm.NewToolCall("1", "ghost__delete", map[string]interface{}{})
	adapter := &fakeAdapter{responses: []*llm.GenerateResponse{
		{Choices: []llm.Choice{{Message: llm.NewAssistantMessageWithToolCalls(call)}}},
		{Choices: []llm.Choice{{Message: llm.NewAssistantMessage("could not complete that")}}},
	}}
	loop, _, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	resp := loop.Handle(context.Background(), Request{UserID: "u1", Message: "delete everything"})

	require.True(t, resp.Success)
	assert.Equal(t, 1, resp.ToolCalls)
	assert.Empty(t, resp.ToolsUsed)
}

func TestGenerateRetriesTransientErrorUntilContextCancelled(t *testing.T) {
	adapter := &fakeAdapter{errs: map[int]error{0: errors.New("dial tcp: connection refused")}}
	loop, _, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := loop.generate(ctx, []llm.Message{llm.NewUserMessage("hi")}, nil, llm.NewAutoToolChoice())

	require.Error(t, err)
	assert.Equal(t, 1, adapter.calls, "the failed first attempt should be retried only after the backoff, which the cancelled context preempts")
}

func TestGenerateContextLimitShortCircuitsWithoutRetry(t *testing.T) {
	adapter := &fakeAdapter{errs: map[int]error{0: errors.New("this model's maximum context length is 8192 tokens")}}
	loop, _, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	_, err := loop.generate(context.Background(), []llm.Message{llm.NewUserMessage("hi")}, nil, llm.NewAutoToolChoice())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContextLimitExceeded))
	assert.Equal(t, 1, adapter.calls)
}

func TestGenerateNonTransientErrorFailsImmediately(t *testing.T) {
	adapter := &fakeAdapter{errs: map[int]error{0: errors.New("invalid api key")}}
	loop, _, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()

	_, err := loop.generate(context.Background(), []llm.Message{llm.NewUserMessage("hi")}, nil, llm.NewAutoToolChoice())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLMFailure))
	assert.Equal(t, 1, adapter.calls)
}

func TestHandleRequestTimeoutProducesTimeoutTag(t *testing.T) {
	adapter := &fakeAdapter{delay: 50 * time.Millisecond}
	loop, persister, server := newTestLoop(t, adapter, 10, false)
	defer server.Close()
	defer loop.recorder.Stop()
	loop.timeout = 5 * time.Millisecond

	resp := loop.Handle(context.Background(), Request{UserID: "u1", Message: "hi"})

	assert.False(t, resp.Success)
	assert.Equal(t, "timeout", resp.Warning)
	assert.True(t, errors.Is(resp.Err, ErrTimeout))
	assert.Eventually(t, func() bool { return len(persister.records) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, audit.StatusError, persister.records[0].Status)
}
