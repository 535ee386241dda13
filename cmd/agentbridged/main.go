// Command agentbridged runs the orchestration bridge as a standalone HTTP
// daemon: it wires the Permission Resolver, MCP Registry, Rate Limiter,
// Thread Store and Audit Recorder around the Agentic Loop and serves the
// chat endpoint described in spec §6.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/viant/agentbridge/genai/llm"
	"github.com/viant/agentbridge/genai/llm/provider"
	"github.com/viant/agentbridge/internal/audit"
	"github.com/viant/agentbridge/internal/mcp"
	"github.com/viant/agentbridge/internal/orchestrator"
	"github.com/viant/agentbridge/internal/permission"
	"github.com/viant/agentbridge/internal/ratelimit"
	"github.com/viant/agentbridge/internal/reload"
	"github.com/viant/agentbridge/internal/thread"
)

// Options are the daemon's command-line flags.
type Options struct {
	Addr        string `short:"a" long:"addr" description:"listen address" default:":8080"`
	ConfigDir   string `short:"c" long:"config-dir" description:"directory holding mcps.yaml and users.yaml" default:"./config"`
	LMProvider  string `long:"lm-provider" description:"LM provider id" default:"openai"`
	LMModel     string `long:"lm-model" description:"LM model id" default:"gpt-4o-mini"`
	LMAPIKeyEnv string `long:"lm-api-key-env" description:"environment variable holding the LM API key" default:"OPENAI_API_KEY"`

	// LMFallbackModel, when set, registers a second candidate model; the
	// daemon picks between it and LMModel using LMIntelligence/LMSpeed/
	// LMHints via a provider.Matcher instead of always using LMModel.
	LMFallbackModel string   `long:"lm-fallback-model" description:"secondary LM model id, selectable via preferences"`
	LMIntelligence  float64  `long:"lm-intelligence" description:"desired intelligence weight (0-1) when choosing between LM models" default:"0.5"`
	LMSpeed         float64  `long:"lm-speed" description:"desired speed weight (0-1) when choosing between LM models" default:"0.5"`
	LMHints         []string `long:"lm-hint" description:"model id hints consulted before the weighted score, checked in order"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	mcpsPath := filepath.Join(opts.ConfigDir, "mcps.yaml")
	usersPath := filepath.Join(opts.ConfigDir, "users.yaml")

	descriptors, err := loadMCPConfigs(mcpsPath)
	if err != nil {
		log.Fatalf("agentbridged: loading %s: %v", mcpsPath, err)
	}
	roles, err := loadRoles(usersPath)
	if err != nil {
		log.Fatalf("agentbridged: loading %s: %v", usersPath, err)
	}
	users, err := loadUsers(usersPath)
	if err != nil {
		log.Fatalf("agentbridged: loading %s: %v", usersPath, err)
	}

	registry := mcp.NewRegistry(descriptors, mcp.Options{})
	registry.Start()
	defer registry.Stop()

	snapshot := orchestrator.NewSnapshot(registry, roles)
	resolver := permission.NewResolver(snapshot, permission.Options{})

	factory := provider.New()
	entries := []provider.ModelEntry{
		{ID: opts.LMModel, Options: &provider.Options{Provider: opts.LMProvider, Model: opts.LMModel, APIKeyEnv: opts.LMAPIKeyEnv}, Intelligence: 1, Speed: 0.5},
	}
	if opts.LMFallbackModel != "" {
		entries = append(entries, provider.ModelEntry{
			ID:           opts.LMFallbackModel,
			Options:      &provider.Options{Provider: opts.LMProvider, Model: opts.LMFallbackModel, APIKeyEnv: opts.LMAPIKeyEnv},
			Intelligence: 0.5, Speed: 1,
		})
	}
	modelRegistry := provider.NewRegistry(factory, entries)

	selected := opts.LMModel
	if opts.LMFallbackModel != "" {
		prefs := llm.NewModelPreferences(llm.WithHints(opts.LMHints...))
		prefs.Intelligence, prefs.Speed = opts.LMIntelligence, opts.LMSpeed
		if id := modelRegistry.Matcher().Best(prefs); id != "" {
			selected = id
		}
	}
	model, err := modelRegistry.Find(context.Background(), selected)
	if err != nil {
		log.Fatalf("agentbridged: building LM adapter: %v", err)
	}
	adapter, ok := model.(llm.Adapter)
	if !ok {
		log.Fatalf("agentbridged: provider %q does not implement the LM Adapter contract", opts.LMProvider)
	}

	threads := thread.NewStore(thread.DefaultMaxMessages, thread.DefaultTTL)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	threads.StartSweeper(sweepCtx, time.Hour)

	limiter := ratelimit.New(ratelimit.Window)
	recorder := audit.New(&stderrPersister{}, audit.Options{})
	defer recorder.Stop()

	loop := orchestrator.New(snapshot, resolver, registry, adapter, threads, limiter, recorder, orchestrator.Options{
		Users: func(id string) permission.User {
			if u, ok := users[id]; ok {
				return u
			}
			return permission.User{ID: permission.DefaultUserID, Role: permission.DefaultUserID}
		},
	})

	reloadMgr, err := reload.NewManager(opts.ConfigDir, 500*time.Millisecond)
	if err != nil {
		log.Fatalf("agentbridged: creating config watcher: %v", err)
	}
	reloadMgr.Register("mcps", mcpReloader{registry: registry, path: mcpsPath})
	reloadMgr.Register("users", &userRoleReloader{snapshot: snapshot, path: usersPath})
	if err := reloadMgr.Start(); err != nil {
		log.Fatalf("agentbridged: starting config watcher: %v", err)
	}
	defer reloadMgr.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", chatHandler(loop))

	srv := &http.Server{Addr: opts.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("agentbridged: listening on %s", opts.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("agentbridged: %v", err)
	}
}

type chatRequest struct {
	UserID         string `json:"user-id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation-id,omitempty"`
	Source         struct {
		Channel   string `json:"channel,omitempty"`
		MessageID string `json:"message-id,omitempty"`
		ThreadID  string `json:"thread-id,omitempty"`
	} `json:"source,omitempty"`
}

func chatHandler(loop *orchestrator.Loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sourceTag := r.Header.Get("X-Source")
		resp := loop.Handle(r.Context(), orchestrator.Request{
			UserID:         req.UserID,
			Message:        req.Message,
			ConversationID: req.ConversationID,
			Source: orchestrator.Source{
				Channel:   req.Source.Channel,
				MessageID: req.Source.MessageID,
				ThreadID:  req.Source.ThreadID,
				Tag:       sourceTag,
			},
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Success    bool     `json:"success"`
			Answer     string   `json:"answer"`
			ToolCalls  int      `json:"tool_calls"`
			ToolsUsed  []string `json:"tools_used"`
			Iterations int      `json:"iterations"`
			Warning    string   `json:"warning,omitempty"`
			Cost       float64  `json:"cost_estimate"`
			Usage      struct {
				Input  int `json:"input"`
				Output int `json:"output"`
				Cached int `json:"cached"`
			} `json:"usage"`
		}{
			Success: resp.Success, Answer: resp.Answer, ToolCalls: resp.ToolCalls,
			ToolsUsed: resp.ToolsUsed, Iterations: resp.Iterations, Warning: resp.Warning,
			Cost: resp.Cost,
			Usage: struct {
				Input  int `json:"input"`
				Output int `json:"output"`
				Cached int `json:"cached"`
			}{resp.Usage.Input, resp.Usage.Output, resp.Usage.Cached},
		})
	}
}

// stderrPersister is the bundled fallback Persister: it logs records to
// stderr. Production deployments supply a real external store (spec §4.6:
// "external persistence collaborator").
type stderrPersister struct{}

func (stderrPersister) Persist(ctx context.Context, rec audit.Record) error {
	data, _ := json.Marshal(rec)
	log.Printf("audit: %s", data)
	return nil
}

// mcpReloader adapts a config file reload into an mcp.Registry update (spec
// §6: the MCP registry is "reloadable without restart").
type mcpReloader struct {
	registry *mcp.Registry
	path     string
}

func (r mcpReloader) Reload(ctx context.Context, name string, what reload.Action) error {
	if what == reload.Delete {
		return nil
	}
	descs, err := loadMCPConfigs(r.path)
	if err != nil {
		return err
	}
	for _, d := range descs {
		r.registry.Reload(ctx, d)
	}
	return nil
}

// userRoleReloader hot-swaps the role table backing permission resolution.
type userRoleReloader struct {
	snapshot *orchestrator.Snapshot
	path     string
	version  int
}

func (r *userRoleReloader) Reload(ctx context.Context, name string, what reload.Action) error {
	if what == reload.Delete {
		return nil
	}
	roles, err := loadRoles(r.path)
	if err != nil {
		return err
	}
	r.version++
	r.snapshot.SetRoles(roles, strconv.Itoa(r.version))
	return nil
}
