package exec

import (
	"context"

	"github.com/haasonsaas/foundry/internal/shell"
	"github.com/haasonsaas/foundry/internal/tools"
)

// KillShellTool terminates a background shell.
type KillShellTool struct {
	manager *shell.Manager
}

// NewKillShellTool creates the kill_shell tool.
func NewKillShellTool(manager *shell.Manager) *KillShellTool {
	return &KillShellTool{manager: manager}
}

func (t *KillShellTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "kill_shell",
		Description: "Terminate a background shell by id.",
		Category:    tools.CategoryExecution,
		Params: []tools.Param{
			{
				Name:        "shell_id",
				Type:        tools.TypeString,
				Description: "Shell id returned by bash.",
				Required:    true,
			},
		},
	}
}

func (t *KillShellTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	id := stringArg(args, "shell_id")
	proc, ok := t.manager.GetShell(id)
	if !ok {
		return tools.Errorf("Shell not found: %s", id), nil
	}

	status := proc.Status()
	if status.Terminal() {
		return tools.Ok("Shell " + id + " already stopped").
			WithMeta("already_stopped", true).
			WithMeta("status", string(status)), nil
	}

	if err := proc.Kill(); err != nil {
		return tools.Errorf("failed to kill shell %s: %v", id, err), nil
	}
	// Block until the reaper stamps the terminal state so duration is final.
	<-proc.Done()

	return tools.Ok("Shell " + id + " terminated").
		WithMeta("duration_ms", proc.DurationMs()).
		WithMeta("command", proc.Command), nil
}
