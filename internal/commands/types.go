// Package commands implements the slash-command dispatcher: parsing,
// registration, suggestion, subcommand dispatch, and execution.
package commands

import (
	"context"
	"time"

	"github.com/haasonsaas/foundry/internal/agent"
	"github.com/haasonsaas/foundry/internal/config"
	"github.com/haasonsaas/foundry/internal/shell"
	"github.com/haasonsaas/foundry/internal/tools"
)

// Category groups commands in help output.
type Category string

const (
	CategoryGeneral Category = "general"
	CategorySession Category = "session"
	CategoryContext Category = "context"
	CategoryControl Category = "control"
	CategoryConfig  Category = "config"
	CategoryDebug   Category = "debug"
)

// ParsedCommand is the structured form of one command line.
type ParsedCommand struct {
	// Name is the lower-cased command name without the slash.
	Name string

	// Args are positional arguments in order.
	Args []string

	// Kwargs are --key=value and --key value pairs.
	Kwargs map[string]string

	// Flags are bare --key and -x switches.
	Flags map[string]bool

	// Raw is the original input line.
	Raw string
}

// Subcommand returns the first positional argument, the conventional
// subcommand slot.
func (p *ParsedCommand) Subcommand() string {
	if len(p.Args) == 0 {
		return ""
	}
	return p.Args[0]
}

// Kwarg returns a keyword argument with a fallback.
func (p *ParsedCommand) Kwarg(key, fallback string) string {
	if v, ok := p.Kwargs[key]; ok {
		return v
	}
	return fallback
}

// ArgSpec declares one expected positional argument.
type ArgSpec struct {
	Name        string
	Description string
	Required    bool
}

// Handler executes a resolved command.
type Handler func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error)

// Command is a registered slash command. A command with Subcommands acts as
// a dispatcher: the first positional selects the subcommand, and the handler
// runs only when no subcommand is given (typically printing help).
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Category    Category
	Arguments   []ArgSpec
	Subcommands map[string]*Command
	Handler     Handler
}

// Result is the outcome of one command execution. Data.action may carry
// "exit" (terminate the program) or "stop" (interrupt the current
// operation).
type Result struct {
	Success bool           `json:"success"`
	Output  string         `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Ok builds a success result.
func Ok(output string) *Result {
	return &Result{Success: true, Output: output}
}

// Fail builds a failure result.
func Fail(errMsg string) *Result {
	return &Result{Success: false, Error: errMsg}
}

// SessionInfo describes one stored session for listing.
type SessionInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore is the slice of the session subsystem commands need. Session
// persistence itself lives outside the execution core.
type SessionStore interface {
	List() []SessionInfo
	Get(id string) (SessionInfo, bool)
	Create(title string) SessionInfo
}

// Context carries the capabilities commands may act on. Commands use these
// handles and never reach into globals.
type Context struct {
	Sessions SessionStore
	Config   *config.Config
	Provider agent.Provider
	Print    func(string)
	Agents   *agent.Manager
	Shells   *shell.Manager
	Tools    *tools.Registry
	ToolExec *tools.Executor
}
