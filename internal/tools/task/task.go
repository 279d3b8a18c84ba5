// Package task exposes the agent manager to the LLM: spawning subagents,
// polling their status, cancelling them, and waiting for aggregated results.
package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/foundry/internal/agent"
	"github.com/haasonsaas/foundry/internal/tools"
)

// SpawnTool starts a subagent on a task.
type SpawnTool struct {
	manager *agent.Manager
}

// NewSpawnTool creates the spawn_agent tool.
func NewSpawnTool(manager *agent.Manager) *SpawnTool {
	return &SpawnTool{manager: manager}
}

func (t *SpawnTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "spawn_agent",
		Description: "Spawn a subagent to work on a task. Returns the agent id immediately unless wait is set.",
		Category:    tools.CategoryTask,
		Params: []tools.Param{
			{
				Name:        "agent_type",
				Type:        tools.TypeString,
				Description: "Kind of agent to spawn.",
				Required:    true,
				Enum:        []any{"explore", "plan", "code-review", "general"},
			},
			{
				Name:        "task",
				Type:        tools.TypeString,
				Description: "The task for the subagent to complete.",
				Required:    true,
			},
			{
				Name:        "tools",
				Type:        tools.TypeArray,
				Description: "Tool names the subagent may use (optional, defaults to the type's set).",
			},
			{
				Name:        "wait",
				Type:        tools.TypeBoolean,
				Description: "Block until the subagent finishes and return its output.",
				Default:     false,
			},
		},
	}
}

func (t *SpawnTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	agentType, _ := args["agent_type"].(string)
	taskText, _ := args["task"].(string)
	if strings.TrimSpace(taskText) == "" {
		return tools.Errorf("task is required"), nil
	}
	wait, _ := args["wait"].(bool)

	if ec.DryRun {
		return tools.Ok(fmt.Sprintf("[dry-run] would spawn a %s agent for: %s", agentType, taskText)), nil
	}

	var config *agent.Config
	if raw, ok := args["tools"]; ok {
		if names := toStringSlice(raw); names != nil {
			cfg := agent.Config{AgentType: agentType, Tools: names}
			config = &cfg
		}
	}

	actx := &agent.Context{
		WorkingDir:    ec.WorkingDir,
		ParentAgentID: ec.AgentID,
	}

	a := t.manager.Spawn(ctx, agentType, taskText, config, actx, wait)

	if wait {
		result := a.Result()
		if result == nil {
			return tools.Errorf("agent %s finished without a result", a.ID), nil
		}
		if !result.Success {
			return tools.Errorf("Agent %s failed: %s\n%s", a.ID, result.Error, result.Output).
				WithMeta("agent_id", a.ID), nil
		}
		return tools.Ok(result.Output).
			WithMeta("agent_id", a.ID).
			WithMeta("tokens_used", result.Usage.TokensUsed), nil
	}

	return tools.Ok(fmt.Sprintf("Spawned %s agent %s.\nUse agent_status to check progress, agent_wait to collect the result.", agentType, a.ID)).
		WithMeta("agent_id", a.ID), nil
}

// StatusTool reports one agent or lists all.
type StatusTool struct {
	manager *agent.Manager
}

// NewStatusTool creates the agent_status tool.
func NewStatusTool(manager *agent.Manager) *StatusTool {
	return &StatusTool{manager: manager}
}

func (t *StatusTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "agent_status",
		Description: "Check the status of a subagent, or list all subagents when no id is given.",
		Category:    tools.CategoryTask,
		Params: []tools.Param{
			{
				Name:        "id",
				Type:        tools.TypeString,
				Description: "Agent id (optional).",
			},
		},
	}
}

func (t *StatusTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	if id, _ := args["id"].(string); id != "" {
		a, ok := t.manager.Get(id)
		if !ok {
			return tools.Errorf("agent not found: %s", id), nil
		}
		return tools.Ok(describeAgent(a)).
			WithMeta("state", string(a.State())), nil
	}

	agents := t.manager.List()
	if len(agents) == 0 {
		return tools.Ok("No subagents."), nil
	}
	var b strings.Builder
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s [%s] %s: %s\n", a.ID, a.State(), a.Config.AgentType, truncate(a.Task, 60))
	}
	return tools.Ok(b.String()), nil
}

// CancelTool cancels a running agent.
type CancelTool struct {
	manager *agent.Manager
}

// NewCancelTool creates the agent_cancel tool.
func NewCancelTool(manager *agent.Manager) *CancelTool {
	return &CancelTool{manager: manager}
}

func (t *CancelTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "agent_cancel",
		Description: "Cancel a subagent by id.",
		Category:    tools.CategoryTask,
		Params: []tools.Param{
			{
				Name:        "id",
				Type:        tools.TypeString,
				Description: "Agent id to cancel.",
				Required:    true,
			},
		},
	}
}

func (t *CancelTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	id, _ := args["id"].(string)
	if !t.manager.Cancel(id) {
		return tools.Errorf("agent not found: %s", id), nil
	}
	return tools.Ok("Cancellation requested for agent " + id), nil
}

// WaitTool blocks until agents finish and returns the aggregate.
type WaitTool struct {
	manager *agent.Manager
}

// NewWaitTool creates the agent_wait tool.
func NewWaitTool(manager *agent.Manager) *WaitTool {
	return &WaitTool{manager: manager}
}

func (t *WaitTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "agent_wait",
		Description: "Wait for subagents to finish and return their combined results.",
		Category:    tools.CategoryTask,
		Params: []tools.Param{
			{
				Name:        "ids",
				Type:        tools.TypeArray,
				Description: "Agent ids to wait for (optional, defaults to all).",
			},
		},
	}
}

func (t *WaitTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	var ids []string
	if raw, ok := args["ids"]; ok {
		ids = toStringSlice(raw)
	}

	agg := t.manager.WaitAll(ctx, ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d agents finished: %d succeeded, %d failed. %d tokens, %d tool calls.\n",
		len(agg.Results), agg.SuccessCount, agg.FailureCount, agg.TotalTokens, agg.TotalToolCalls)
	for i, r := range agg.Results {
		if r == nil {
			continue
		}
		status := "ok"
		if !r.Success {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(&b, "\n--- agent %d (%s) ---\n%s\n", i+1, status, r.Output)
	}

	return tools.Ok(b.String()).
		WithMeta("success_count", agg.SuccessCount).
		WithMeta("failure_count", agg.FailureCount), nil
}

func describeAgent(a *agent.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent %s (%s)\nState: %s\nTask: %s\n", a.ID, a.Config.AgentType, a.State(), a.Task)
	if result := a.Result(); result != nil {
		if result.Success {
			fmt.Fprintf(&b, "Output: %s\n", result.Output)
		} else {
			fmt.Fprintf(&b, "Error: %s\n", result.Error)
		}
		usage := result.Usage
		fmt.Fprintf(&b, "Usage: %d tokens, %d tool calls, %d iterations\n",
			usage.TokensUsed, usage.ToolCalls, usage.Iterations)
	}
	return b.String()
}

func toStringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		if direct, ok := raw.([]string); ok {
			return direct
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
