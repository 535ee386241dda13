package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/viant/agentbridge/genai/llm"
	"github.com/viant/agentbridge/genai/tool"
	"github.com/viant/agentbridge/internal/audit"
	"github.com/viant/agentbridge/internal/mcp"
	"github.com/viant/agentbridge/internal/permission"
	"github.com/viant/agentbridge/internal/ratelimit"
	"github.com/viant/agentbridge/internal/thread"
)

// MaxIterations is the default iteration ceiling (spec §4.5: "default 10").
const MaxIterations = 10

// DefaultRequestTimeout bounds one Handle call end to end (spec §5: "each
// request carries a deadline"), mirroring the teacher's tool_executor.go
// defaultTimeout constant.
const DefaultRequestTimeout = 3 * time.Minute

// generateAttempts/generateBackoff implement the teacher's generate.go
// retry schedule: up to 3 attempts, with a 1s then a 2s backoff between them.
const generateAttempts = 3

func generateBackoff(attempt int) time.Duration { return time.Second << attempt }

// ProfileLookup resolves a free-text user profile blurb fed into the system
// block (spec §4.4 build_system_block). Returning "" omits the profile.
type ProfileLookup func(userID string) string

// UserLookup resolves a user ID to its role and permission overrides (spec
// §4.2: "unknown users fall back to a default_user principal"). Unknown IDs
// should be mapped by the implementation to a sensible default role.
type UserLookup func(userID string) permission.User

// Loop implements the Agentic Loop (spec §4.5).
type Loop struct {
	snapshot *Snapshot
	resolver *permission.Resolver
	registry *mcp.Registry
	adapter  llm.Adapter
	threads  *thread.Store
	limiter  *ratelimit.Limiter
	recorder *audit.Recorder
	profile  ProfileLookup
	users    UserLookup
	maxIters int
	timeout  time.Duration
}

// Options configures a Loop.
type Options struct {
	MaxIterations  int
	Profile        ProfileLookup
	Users          UserLookup
	RequestTimeout time.Duration
}

// New builds a Loop wiring together its collaborators.
func New(snapshot *Snapshot, resolver *permission.Resolver, registry *mcp.Registry, adapter llm.Adapter, threads *thread.Store, limiter *ratelimit.Limiter, recorder *audit.Recorder, opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = MaxIterations
	}
	if opts.Profile == nil {
		opts.Profile = func(string) string { return "" }
	}
	if opts.Users == nil {
		opts.Users = func(id string) permission.User { return permission.User{ID: id, Role: permission.DefaultUserID} }
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &Loop{
		snapshot: snapshot,
		resolver: resolver,
		registry: registry,
		adapter:  adapter,
		threads:  threads,
		limiter:  limiter,
		recorder: recorder,
		profile:  opts.Profile,
		users:    opts.Users,
		maxIters: opts.MaxIterations,
		timeout:  opts.RequestTimeout,
	}
}

// Handle runs one request through the full Agentic Loop (spec §4.5) and
// emits exactly one Audit Record before returning.
func (l *Loop) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	user := permission.EffectiveUser(l.users(req.UserID))
	role, _ := l.snapshot.Role(user.Role)

	if d := l.limiter.Admit(user.ID, role.Ceiling, role.Unlimited, time.Now()); !d.Admitted {
		return l.fail(req, user, start, ErrRateLimited, "too many requests; please retry after your quota resets")
	}

	allowed, err := l.resolver.AllowedTools(ctx, user)
	if err != nil {
		return l.fail(req, user, start, ErrPermissionDenied, "could not resolve permissions; please retry")
	}

	mcpTools := l.expandTools(ctx, allowed)
	// WithConversation binds every Execute call this request makes to
	// req.ConversationID, so downstream collaborators can correlate a tool
	// invocation back to its conversation without an extra parameter.
	view := tool.WithConversation(mcp.NewViewRegistry(l.registry, mcpTools), req.ConversationID)
	var toolDecls []llm.Tool
	for _, def := range view.Definitions() {
		toolDecls = append(toolDecls, llm.NewFunctionTool(def))
	}

	messages := []llm.Message{l.adapter.BuildSystemBlock(toolDecls, l.profile(user.ID))}
	if req.ConversationID != "" {
		for _, m := range l.threads.Recent(ctx, req.ConversationID) {
			messages = append(messages, toLLMMessage(m))
		}
	}
	messages = append(messages, llm.NewUserMessage(req.Message))

	iteration := 0
	var toolsUsed []string
	toolCallsCount := 0
	mcpsTouched := map[string]bool{}
	usageTotal := &llm.Usage{}
	cost := 0.0
	status := audit.StatusSuccess
	var loopErr error
	answer := ""

loop:
	for {
		iteration++
		if iteration > l.maxIters {
			iteration = l.maxIters
			status = audit.StatusWarning
			loopErr = ErrMaxIterationsReached
			if answer == "" {
				answer = "iteration limit reached"
			}
			break
		}

		// Force a textual answer on the last allowed iteration instead of
		// risking one more tool call that would only hit the ceiling (spec
		// §4.5's iteration cap, mirrored as a tool-choice hint rather than
		// a hard cutoff so the caller still gets a real answer).
		toolChoice := llm.NewAutoToolChoice()
		if iteration == l.maxIters {
			toolChoice = llm.NewNoneToolChoice()
		}

		resp, genErr := l.generate(ctx, messages, toolDecls, toolChoice)
		if genErr != nil {
			status = audit.StatusError
			switch {
			case errors.Is(genErr, context.DeadlineExceeded):
				loopErr = ErrTimeout
				answer = "the request timed out; please retry"
			case errors.Is(genErr, ErrContextLimitExceeded):
				loopErr = ErrContextLimitExceeded
				answer = "the conversation is too long for the assistant to process; please start a new one"
			default:
				loopErr = ErrLMFailure
				if answer == "" {
					answer = "the assistant is temporarily unavailable; please retry"
				}
			}
			break
		}
		if resp.Usage != nil {
			usageTotal.PromptTokens += resp.Usage.PromptTokens
			usageTotal.CompletionTokens += resp.Usage.CompletionTokens
			usageTotal.CachedTokens += resp.Usage.CachedTokens
			cost += l.adapter.Cost(resp.Usage)
		}

		choice := resp.Choices[0]
		if choice.Message.Content != "" {
			answer = choice.Message.Content
		}
		if len(choice.Message.ToolCalls) == 0 {
			status = audit.StatusSuccess
			break loop
		}

		messages = append(messages, llm.NewAssistantMessageWithToolCalls(choice.Message.ToolCalls...))
		results := l.dispatch(ctx, user, view, choice.Message.ToolCalls, mcpsTouched)
		for i, call := range choice.Message.ToolCalls {
			messages = append(messages, llm.NewToolResultMessage(call, results[i]))
			toolCallsCount++
			if results[i] != notPermittedResult {
				toolsUsed = append(toolsUsed, call.Name)
			}
		}

		if ctx.Err() != nil {
			status = audit.StatusError
			loopErr = ErrTimeout
			if answer == "" {
				answer = "the request timed out; please retry"
			}
			break
		}
	}
	warning := tagFor(loopErr)

	if req.ConversationID != "" {
		l.threads.Append(ctx, req.ConversationID, thread.Message{Role: "user", Text: req.Message})
		l.threads.Append(ctx, req.ConversationID, thread.Message{Role: "assistant", Text: answer})
	}

	mcpsList := make([]string, 0, len(mcpsTouched))
	for m := range mcpsTouched {
		mcpsList = append(mcpsList, m)
	}

	l.recorder.Record(audit.Record{
		ID: uuid.NewString(), UserID: user.ID, Message: req.Message,
		Iterations: iteration, ToolCallsCount: toolCallsCount, ToolsUsed: toolsUsed,
		MCPsAccessed: mcpsList, TokensInput: usageTotal.PromptTokens,
		TokensOutput: usageTotal.CompletionTokens, TokensCached: usageTotal.CachedTokens,
		CostEstimate: cost, Status: status, Warning: warning,
		DurationMS: time.Since(start).Milliseconds(), SourceTag: req.Source.Tag,
		ConversationRef: req.ConversationID, CreatedAt: time.Now(),
	})

	return Response{
		Success: status == audit.StatusSuccess, Answer: answer, ToolCalls: toolCallsCount,
		ToolsUsed: toolsUsed, Iterations: iteration, Warning: warning, Err: loopErr, Cost: cost,
		Usage: Usage{Input: usageTotal.PromptTokens, Output: usageTotal.CompletionTokens, Cached: usageTotal.CachedTokens},
	}
}

func (l *Loop) fail(req Request, user permission.User, start time.Time, err error, message string) Response {
	tag := tagFor(err)
	l.recorder.Record(audit.Record{
		ID: uuid.NewString(), UserID: user.ID, Message: req.Message,
		Status: audit.StatusError, Warning: tag, DurationMS: time.Since(start).Milliseconds(),
		SourceTag: req.Source.Tag, ConversationRef: req.ConversationID, CreatedAt: time.Now(),
	})
	return Response{Success: false, Warning: tag, Err: err, Answer: message}
}

// generate invokes the adapter with the teacher's generate.go retry schedule:
// up to generateAttempts tries, generateBackoff delay between them. Context-
// limit errors short-circuit immediately (retrying won't shrink the prompt);
// only errors classified as transient network failures are retried.
func (l *Loop) generate(ctx context.Context, messages []llm.Message, tools []llm.Tool, toolChoice llm.ToolChoice) (*llm.GenerateResponse, error) {
	opts := &llm.Options{Tools: tools, ToolChoice: toolChoice}
	var lastErr error
	for attempt := 0; attempt < generateAttempts; attempt++ {
		resp, err := l.adapter.Generate(ctx, &llm.GenerateRequest{Messages: messages, Options: opts})
		if err == nil {
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("%w: empty response", ErrLMFailure)
			}
			return resp, nil
		}
		lastErr = err
		if isContextLimitError(err) {
			return nil, fmt.Errorf("%w: %v", ErrContextLimitExceeded, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransientNetworkError(err) || attempt == generateAttempts-1 {
			return nil, fmt.Errorf("%w: %v", ErrLMFailure, err)
		}
		select {
		case <-time.After(generateBackoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrLMFailure, lastErr)
}

// expandTools resolves each allowed (mcp, tool) pair to its full catalog
// entry (description, input schema) so the LM sees complete declarations
// rather than bare names.
func (l *Loop) expandTools(ctx context.Context, allowed []permission.Tool) []mcp.Tool {
	byMCP := map[string][]mcp.Tool{}
	out := make([]mcp.Tool, 0, len(allowed))
	for _, a := range allowed {
		catalog, ok := byMCP[a.MCP]
		if !ok {
			catalog = l.registry.Catalog(ctx, a.MCP)
			byMCP[a.MCP] = catalog
		}
		for _, t := range catalog {
			if t.Name == a.Name {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func toLLMMessage(m thread.Message) llm.Message {
	if m.Role == "assistant" {
		return llm.NewAssistantMessage(m.Text)
	}
	return llm.NewUserMessage(m.Text)
}
