package exec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/foundry/internal/shell"
	"github.com/haasonsaas/foundry/internal/tools"
)

// Execution limits for the bash tool.
const (
	DefaultTimeoutMs = 120_000
	MaxTimeoutMs     = 600_000
	MaxOutputChars   = 30_000

	truncationMarker = "\n... [output truncated]"
)

// BashTool runs shell commands, either foreground (blocking until exit or
// timeout) or in the background via the shell manager.
type BashTool struct {
	manager *shell.Manager
}

// NewBashTool creates the bash tool over the given shell manager.
func NewBashTool(manager *shell.Manager) *BashTool {
	return &BashTool{manager: manager}
}

func (t *BashTool) Descriptor() tools.Descriptor {
	maxTimeout := float64(MaxTimeoutMs)
	return tools.Descriptor{
		Name:        "bash",
		Description: "Run a shell command. Set run_in_background to get a shell id for polling with bash_output.",
		Category:    tools.CategoryExecution,
		Params: []tools.Param{
			{
				Name:        "command",
				Type:        tools.TypeString,
				Description: "Shell command to execute.",
				Required:    true,
			},
			{
				Name:        "description",
				Type:        tools.TypeString,
				Description: "Short human-readable description of what the command does.",
			},
			{
				Name:        "timeout",
				Type:        tools.TypeInteger,
				Description: "Timeout in milliseconds (max 600000).",
				Default:     DefaultTimeoutMs,
				Maximum:     &maxTimeout,
			},
			{
				Name:        "run_in_background",
				Type:        tools.TypeBoolean,
				Description: "Start the command in the background and return a shell id.",
				Default:     false,
			},
		},
	}
}

func (t *BashTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	command := strings.TrimSpace(stringArg(args, "command"))
	if command == "" {
		return tools.Errorf("command is required"), nil
	}

	timeoutMs := intArg(args, "timeout", DefaultTimeoutMs)
	if timeoutMs > MaxTimeoutMs {
		return tools.Errorf("timeout %dms exceeds maximum of %dms", timeoutMs, MaxTimeoutMs), nil
	}
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}

	// The security check runs before dry-run and before any process is
	// spawned: a blocked command is never previewed as executable.
	if IsDangerous(command) {
		return tools.Errorf("Command blocked: matches dangerous command pattern: %s", command).
			WithMeta("blocked", true), nil
	}

	if ec.DryRun {
		return tools.Ok(fmt.Sprintf("[dry-run] would execute: %s", command)).
			WithMeta("command", command), nil
	}

	if boolArg(args, "run_in_background") {
		proc, err := t.manager.CreateShell(command, ec.WorkingDir, nil)
		if err != nil {
			return tools.Errorf("failed to start shell: %v", err), nil
		}
		return tools.Ok(fmt.Sprintf("Started background shell: %s\nUse bash_output to read output, kill_shell to stop it.", proc.ID)).
			WithMeta("bash_id", proc.ID).
			WithMeta("command", command), nil
	}

	return t.runForeground(command, ec, timeoutMs), nil
}

func (t *BashTool) runForeground(command string, ec *tools.ExecContext, timeoutMs int) *tools.Result {
	proc, err := t.manager.CreateShell(command, ec.WorkingDir, nil)
	if err != nil {
		return tools.Errorf("failed to start shell: %v", err)
	}

	status := proc.Wait(time.Duration(timeoutMs) * time.Millisecond)
	output, truncated := capOutput(proc.GetNewOutput(true))

	if status == shell.StatusTimeout {
		result := tools.Errorf("Command timed out after %dms\n%s", timeoutMs, output)
		result.WithMeta("exit_code", nil)
		result.WithMeta("timeout_ms", timeoutMs)
		return result
	}

	code, _ := proc.ExitCode()
	if status == shell.StatusCompleted && code == 0 {
		return tools.Ok(output).
			WithMeta("exit_code", code).
			WithMeta("truncated", truncated).
			WithMeta("command", command)
	}
	return tools.Errorf("Command failed with exit code %d\n%s", code, output).
		WithMeta("exit_code", code).
		WithMeta("truncated", truncated)
}

// capOutput truncates combined output to MaxOutputChars and appends the
// marker line when anything was dropped.
func capOutput(output string) (string, bool) {
	if len(output) <= MaxOutputChars {
		return output, false
	}
	return output[:MaxOutputChars] + truncationMarker, true
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, name string) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return false
}

func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
