package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Executor dispatches command lines: parse, resolve, validate, execute.
// Every failure mode becomes a Result; handler panics are contained.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates a command executor over the registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		logger:   logger.With("component", "command_executor"),
	}
}

// Execute dispatches one command line.
func (e *Executor) Execute(ctx context.Context, text string, cmdCtx *Context) *Result {
	parsed, err := Parse(text)
	if err != nil {
		return Fail(fmt.Sprintf("Invalid command: %v", err))
	}

	cmd, ok := e.registry.Resolve(parsed.Name)
	if !ok {
		msg := fmt.Sprintf("Unknown command: /%s", parsed.Name)
		if suggestion := SuggestCommand(parsed.Name, e.registry.Names()); suggestion != "" {
			msg += fmt.Sprintf(" Did you mean /%s?", suggestion)
		}
		return Fail(msg)
	}

	if len(cmd.Subcommands) > 0 {
		return e.dispatchSubcommand(ctx, cmd, parsed, cmdCtx)
	}
	return e.invoke(ctx, cmd, parsed, cmdCtx)
}

// dispatchSubcommand routes the first positional to the matching subcommand
// with the remaining positionals rebuilt into a fresh ParsedCommand. With no
// subcommand given, the parent handler runs (typically help).
func (e *Executor) dispatchSubcommand(ctx context.Context, cmd *Command, parsed *ParsedCommand, cmdCtx *Context) *Result {
	name := parsed.Subcommand()
	if name == "" {
		return e.invoke(ctx, cmd, parsed, cmdCtx)
	}

	sub, ok := cmd.Subcommands[strings.ToLower(name)]
	if !ok {
		return Fail(fmt.Sprintf("Unknown subcommand: /%s %s\nUsage: %s", cmd.Name, name, cmd.Usage))
	}

	rebuilt := &ParsedCommand{
		Name:   cmd.Name + " " + sub.Name,
		Args:   parsed.Args[1:],
		Kwargs: parsed.Kwargs,
		Flags:  parsed.Flags,
		Raw:    parsed.Raw,
	}
	return e.invoke(ctx, sub, rebuilt, cmdCtx)
}

func (e *Executor) invoke(ctx context.Context, cmd *Command, parsed *ParsedCommand, cmdCtx *Context) (result *Result) {
	if missing := missingArgs(cmd, parsed); missing != "" {
		usage := cmd.Usage
		if usage == "" {
			usage = "/" + cmd.Name
		}
		return Fail(fmt.Sprintf("Missing required argument: %s\nUsage: %s", missing, usage))
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command handler panicked", "command", cmd.Name, "panic", r)
			result = Fail(fmt.Sprintf("Command /%s failed: %v", cmd.Name, r))
		}
	}()

	res, err := cmd.Handler(ctx, parsed, cmdCtx)
	if err != nil {
		return Fail(fmt.Sprintf("Command /%s failed: %v", cmd.Name, err))
	}
	if res == nil {
		return Ok("")
	}
	return res
}

func missingArgs(cmd *Command, parsed *ParsedCommand) string {
	for i, spec := range cmd.Arguments {
		if spec.Required && i >= len(parsed.Args) {
			return spec.Name
		}
	}
	return ""
}
