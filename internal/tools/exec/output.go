package exec

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/foundry/internal/shell"
	"github.com/haasonsaas/foundry/internal/tools"
)

// BashOutputTool reads incremental output from a background shell. Each call
// returns only the bytes not yet seen; cursors live on the shell process.
type BashOutputTool struct {
	manager *shell.Manager
}

// NewBashOutputTool creates the bash_output tool.
func NewBashOutputTool(manager *shell.Manager) *BashOutputTool {
	return &BashOutputTool{manager: manager}
}

func (t *BashOutputTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "bash_output",
		Description: "Read new output from a background shell started with bash run_in_background.",
		Category:    tools.CategoryExecution,
		Params: []tools.Param{
			{
				Name:        "bash_id",
				Type:        tools.TypeString,
				Description: "Shell id returned by bash.",
				Required:    true,
			},
			{
				Name:        "filter",
				Type:        tools.TypeString,
				Description: "Optional regex; only output lines matching it are returned.",
			},
		},
	}
}

func (t *BashOutputTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	id := stringArg(args, "bash_id")
	proc, ok := t.manager.GetShell(id)
	if !ok {
		return tools.Errorf("Shell not found: %s", id), nil
	}

	// Compile the filter before touching the cursors so a bad regex leaves
	// the shell's read state unchanged.
	var filter *regexp.Regexp
	if pattern := stringArg(args, "filter"); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return tools.Errorf("Invalid filter regex: %v", err), nil
		}
		filter = re
	}

	status := proc.Status()
	if status == shell.StatusRunning {
		proc.ReadOutput()
	}

	output := proc.GetNewOutput(true)
	if filter != nil {
		output = filterLines(output, filter)
	}

	status = proc.Status()
	header := fmt.Sprintf("Status: %s", status)
	exitCode, haveCode := proc.ExitCode()
	if haveCode {
		header += fmt.Sprintf(", Exit code: %d", exitCode)
	}
	if status.Terminal() {
		header += fmt.Sprintf(", Duration: %dms", proc.DurationMs())
	}

	body := header
	if output != "" {
		body += "\n" + output
	}

	result := tools.Ok(body).
		WithMeta("bash_id", id).
		WithMeta("status", string(status)).
		WithMeta("is_running", status == shell.StatusRunning)
	if haveCode {
		result.WithMeta("exit_code", exitCode)
	}
	return result, nil
}

func filterLines(output string, re *regexp.Regexp) string {
	if output == "" {
		return ""
	}
	lines := strings.Split(output, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if re.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
