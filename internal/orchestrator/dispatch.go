package orchestrator

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/viant/agentbridge/genai/llm"
	"github.com/viant/agentbridge/genai/llm/provider/base"
	"github.com/viant/agentbridge/genai/tool"
	"github.com/viant/agentbridge/internal/permission"
	"github.com/viant/agentbridge/pkg/mcpid"
)

const notPermittedResult = `{"error":"not permitted"}`

// dispatch resolves permission for each tool call and executes the
// permitted ones, preserving the 1:1 pairing between request and result
// (spec §4.5.e-g). Permitted calls whose target tools are all distinct are
// dispatched concurrently (spec §4.5.f: "if more than one tool request ...
// and their arguments are independent, dispatch concurrently"); distinct
// tool targets is this module's operational definition of independence,
// since the spec leaves the general case undefined. Calls repeating the
// same (mcp, tool) pair run sequentially to avoid races a shared external
// resource might otherwise exhibit. Concurrent dispatch additionally
// requires the LM Adapter to advertise base.CanExecToolsInParallel
// (mirrors the teacher's ParallelToolCalls capability gating) — an
// adapter that doesn't implement it gets sequential dispatch regardless
// of independence, since nothing told it to expect overlapping calls.
func (l *Loop) dispatch(ctx context.Context, user permission.User, view tool.Registry, calls []llm.ToolCall, mcpsTouched map[string]bool) []string {
	results := make([]string, len(calls))
	permitted := make([]int, 0, len(calls))

	for i, call := range calls {
		n := mcpid.Canonical(call.Name)
		tool := permission.Tool{Name: n.Tool(), MCP: n.MCP()}
		decision := l.resolver.Decide(ctx, user, n.MCP(), tool)
		if !decision.Allowed {
			results[i] = notPermittedResult
			continue
		}
		permitted = append(permitted, i)
	}

	var touchedMu sync.Mutex
	markTouched := func(name string) {
		touchedMu.Lock()
		mcpsTouched[name] = true
		touchedMu.Unlock()
	}

	if l.adapter.Implements(base.CanExecToolsInParallel) && independentDispatch(calls, permitted) {
		var g errgroup.Group
		for _, idx := range permitted {
			idx := idx
			g.Go(func() error {
				results[idx] = l.invokeTool(ctx, view, calls[idx], markTouched)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, idx := range permitted {
			results[idx] = l.invokeTool(ctx, view, calls[idx], markTouched)
		}
	}

	return results
}

func (l *Loop) invokeTool(ctx context.Context, view tool.Registry, call llm.ToolCall, markTouched func(string)) string {
	n := mcpid.Canonical(call.Name)
	markTouched(n.MCP())
	result, err := view.Execute(ctx, n.String(), call.Arguments)
	if err != nil {
		msg, _ := json.Marshal(err.Error())
		return `{"error":` + string(msg) + `}`
	}
	return result
}

func independentDispatch(calls []llm.ToolCall, permitted []int) bool {
	if len(permitted) <= 1 {
		return false
	}
	seen := map[string]bool{}
	for _, idx := range permitted {
		n := mcpid.Canonical(calls[idx].Name).String()
		if seen[n] {
			return false
		}
		seen[n] = true
	}
	return true
}
