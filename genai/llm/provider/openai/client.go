// Package openai implements the reference LM adapter used by this module,
// a minimal OpenAI-compatible chat-completions client over an HTTP
// transport. It builds the system block as a cache_control-marked message
// (the marker is not part of the chat-completions wire request and is not
// sent), reads the cached prompt token count the API reports, and does
// per-million-token cost accounting (spec §4.4).
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/viant/agentbridge/genai/llm"
	basecfg "github.com/viant/agentbridge/genai/llm/provider/base"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config configures a Client. Zero-value MaxTokens/Temperature fall back to
// provider defaults; zero-value prices fall back to the spec defaults.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature *float64

	UsageListener basecfg.UsageListener

	InputPricePerM  float64
	OutputPricePerM float64
	CachedPricePerM float64

	// Pacer throttles outbound requests to this client independent of any
	// per-user rate limiting upstream. Nil disables pacing.
	Pacer *basecfg.Pacer
}

// Client is a minimal OpenAI-compatible chat-completions client.
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient builds a Client. When cfg.APIKey is empty it is read from
// OPENAI_API_KEY at call time, not at construction, so tests can set the
// environment variable after building the client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(2 * time.Minute).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{cfg: cfg, http: rc}
}

func (c *Client) apiKey() string {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Implements reports capability flags this adapter supports.
func (c *Client) Implements(feature string) bool {
	switch feature {
	case basecfg.CanUseTools, basecfg.CanStream, basecfg.CanExecToolsInParallel:
		return true
	default:
		return false
	}
}

type chatMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall  `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function chatToolCallFunc   `json:"function"`
}

type chatToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string             `json:"type"`
	Function chatToolDefinition `json:"function"`
}

type chatToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []chatMessage   `json:"messages"`
	Tools       []chatTool      `json:"tools,omitempty"`
	ToolChoice  interface{}     `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// toChatToolChoice renders an llm.ToolChoice the way the OpenAI
// chat-completions API expects it: the bare strings "auto"/"none", or a
// {"type":"function","function":{"name":...}} object for a pinned tool.
func toChatToolChoice(tc llm.ToolChoice) interface{} {
	switch tc.Type {
	case "":
		return nil
	case "auto", "none":
		return tc.Type
	case "function":
		if tc.Function == nil {
			return "auto"
		}
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": tc.Function.Name},
		}
	default:
		return tc.Type
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate submits messages (and optionally tools) to the chat-completions
// endpoint and returns the structured response.
func (c *Client) Generate(ctx context.Context, request *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	key := c.apiKey()
	if key == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if err := c.cfg.Pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("openai: rate pacing: %w", err)
	}
	req := chatRequest{Model: c.cfg.Model}
	if request.Options != nil && request.Options.Model != "" {
		req.Model = request.Options.Model
	}
	for _, m := range request.Messages {
		req.Messages = append(req.Messages, toChatMessage(m))
	}
	if request.Options != nil {
		for _, t := range request.Options.Tools {
			req.Tools = append(req.Tools, chatTool{
				Type: "function",
				Function: chatToolDefinition{
					Name:        t.Definition.Name,
					Description: t.Definition.Description,
					Parameters:  t.Definition.Parameters,
				},
			})
		}
		if request.Options.MaxTokens > 0 {
			req.MaxTokens = request.Options.MaxTokens
		}
		req.ToolChoice = toChatToolChoice(request.Options.ToolChoice)
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}
	req.Temperature = c.cfg.Temperature

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+key).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("openai: transport error: %w", err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("openai: request failed (%d): %s", resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty response")
	}

	usage := &llm.Usage{
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		TotalTokens:      out.Usage.TotalTokens,
		CachedTokens:     out.Usage.PromptTokensDetails.CachedTokens,
	}
	if c.cfg.UsageListener != nil {
		c.cfg.UsageListener.OnUsage(req.Model, usage)
	}

	choice := out.Choices[0]
	msg := llm.Message{Role: llm.RoleAssistant, Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, llm.NewToolCall(tc.ID, tc.Function.Name, unmarshalArgs(tc.Function.Arguments)))
	}
	return &llm.GenerateResponse{
		Model: req.Model,
		Usage: usage,
		Choices: []llm.Choice{{
			Message:      msg,
			FinishReason: choice.FinishReason,
		}},
	}, nil
}

// BuildSystemBlock renders the allowed-tools view and user profile as one
// cacheable system message (spec §4.4: "emitted as a single cacheable
// segment").
func (c *Client) BuildSystemBlock(tools []llm.Tool, userProfile string) llm.Message {
	var b strings.Builder
	b.WriteString("You are an orchestration assistant. ")
	if userProfile != "" {
		b.WriteString("User profile: " + userProfile + ". ")
	}
	if len(tools) > 0 {
		b.WriteString(fmt.Sprintf("%d tools are available to you; only call tools from this catalog.", len(tools)))
	} else {
		b.WriteString("No tools are available for this request.")
	}
	return llm.NewCacheableSystemMessage(b.String())
}

// Cost estimates USD spend for one usage snapshot.
func (c *Client) Cost(usage *llm.Usage) float64 {
	if usage == nil {
		return 0
	}
	inputPrice, outputPrice, cachedPrice := c.prices()
	cached := usage.CachedTokens
	input := usage.PromptTokens - cached
	if input < 0 {
		input = 0
	}
	const million = 1_000_000
	return float64(input)*inputPrice/million +
		float64(usage.CompletionTokens)*outputPrice/million +
		float64(cached)*cachedPrice/million
}

func (c *Client) prices() (input, output, cached float64) {
	input, output, cached = c.cfg.InputPricePerM, c.cfg.OutputPricePerM, c.cfg.CachedPricePerM
	if input == 0 {
		input = 0.80
	}
	if output == 0 {
		output = 4.00
	}
	if cached == 0 {
		cached = 0.08
	}
	return
}

func toChatMessage(m llm.Message) chatMessage {
	cm := chatMessage{Role: string(m.Role), Content: m.Content, Name: m.Name, ToolCallID: m.ToolCallId}
	for _, tc := range m.ToolCalls {
		args, _ := marshalArgs(tc.Arguments)
		cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: chatToolCallFunc{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}
	return cm
}

var _ llm.Adapter = (*Client)(nil)
