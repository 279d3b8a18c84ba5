package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RegisterBuiltins registers the built-in commands.
func RegisterBuiltins(r *Registry) {
	mustRegister := func(cmd *Command) {
		if err := r.Register(cmd); err != nil {
			panic(fmt.Sprintf("failed to register builtin command %q: %v", cmd.Name, err))
		}
	}

	mustRegister(&Command{
		Name:        "help",
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Category:    CategoryGeneral,
		Handler:     helpHandler(r),
	})

	mustRegister(sessionCommand())
	mustRegister(agentsCommand())
	mustRegister(shellsCommand())
	mustRegister(toolsCommand())

	mustRegister(&Command{
		Name:        "model",
		Description: "Show or change the current model",
		Usage:       "/model [model_name]",
		Category:    CategoryConfig,
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			if name := parsed.Subcommand(); name != "" {
				cmdCtx.Config.Model = name
				return Ok("Model set to " + name), nil
			}
			return Ok("Current model: " + cmdCtx.Config.Model), nil
		},
	})

	mustRegister(&Command{
		Name:        "exit",
		Aliases:     []string{"quit", "q"},
		Description: "Exit the program",
		Usage:       "/exit",
		Category:    CategoryControl,
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			res := Ok("Goodbye.")
			res.Data = map[string]any{"action": "exit"}
			return res, nil
		},
	})

	mustRegister(&Command{
		Name:        "stop",
		Description: "Interrupt the current operation",
		Usage:       "/stop",
		Category:    CategoryControl,
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			res := Ok("Stopping.")
			res.Data = map[string]any{"action": "stop"}
			return res, nil
		},
	})
}

func helpHandler(r *Registry) Handler {
	return func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
		if name := parsed.Subcommand(); name != "" {
			cmd, ok := r.Resolve(name)
			if !ok {
				return Fail("Unknown command: /" + name), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "/%s - %s\n", cmd.Name, cmd.Description)
			if cmd.Usage != "" {
				fmt.Fprintf(&b, "Usage: %s\n", cmd.Usage)
			}
			if len(cmd.Aliases) > 0 {
				fmt.Fprintf(&b, "Aliases: %s\n", strings.Join(cmd.Aliases, ", "))
			}
			return Ok(b.String()), nil
		}

		categories := r.GetCategories()
		names := make([]string, 0, len(categories))
		for cat := range categories {
			names = append(names, string(cat))
		}
		sort.Strings(names)

		var b strings.Builder
		b.WriteString("Available commands:\n")
		for _, cat := range names {
			fmt.Fprintf(&b, "\n%s:\n", cat)
			for _, cmd := range categories[Category(cat)] {
				fmt.Fprintf(&b, "  /%-12s %s\n", cmd.Name, cmd.Description)
			}
		}
		return Ok(b.String()), nil
	}
}

func sessionCommand() *Command {
	list := &Command{
		Name:        "list",
		Description: "List stored sessions",
		Usage:       "/session list [--limit N]",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			if cmdCtx.Sessions == nil {
				return Fail("No session store configured"), nil
			}
			sessions := cmdCtx.Sessions.List()
			limit := len(sessions)
			if raw := parsed.Kwarg("limit", ""); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					return Fail("Invalid --limit: " + raw), nil
				}
				if n < limit {
					limit = n
				}
			}
			if limit == 0 || len(sessions) == 0 {
				return Ok("No sessions."), nil
			}
			var b strings.Builder
			for _, s := range sessions[:limit] {
				fmt.Fprintf(&b, "%s  %s  %s\n", s.ID, s.CreatedAt.Format(time.DateTime), s.Title)
			}
			return Ok(b.String()), nil
		},
	}
	show := &Command{
		Name:        "show",
		Description: "Show one session",
		Usage:       "/session show <id>",
		Arguments:   []ArgSpec{{Name: "id", Required: true}},
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			if cmdCtx.Sessions == nil {
				return Fail("No session store configured"), nil
			}
			s, ok := cmdCtx.Sessions.Get(parsed.Args[0])
			if !ok {
				return Fail("Session not found: " + parsed.Args[0]), nil
			}
			return Ok(fmt.Sprintf("%s  %s  %s", s.ID, s.CreatedAt.Format(time.DateTime), s.Title)), nil
		},
	}
	create := &Command{
		Name:        "new",
		Description: "Create a session",
		Usage:       "/session new [title]",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			if cmdCtx.Sessions == nil {
				return Fail("No session store configured"), nil
			}
			title := strings.Join(parsed.Args, " ")
			s := cmdCtx.Sessions.Create(title)
			return Ok("Created session " + s.ID), nil
		},
	}

	return &Command{
		Name:        "session",
		Aliases:     []string{"sessions"},
		Description: "Manage sessions",
		Usage:       "/session <list|show|new>",
		Category:    CategorySession,
		Subcommands: map[string]*Command{"list": list, "show": show, "new": create},
		Handler:     subcommandHelp("session", []string{"list", "show", "new"}),
	}
}

func agentsCommand() *Command {
	list := &Command{
		Name:        "list",
		Description: "List agents",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			agents := cmdCtx.Agents.List()
			if len(agents) == 0 {
				return Ok("No agents."), nil
			}
			var b strings.Builder
			for _, a := range agents {
				fmt.Fprintf(&b, "%s  [%s]  %s: %s\n", a.ID, a.State(), a.Config.AgentType, a.Task)
			}
			return Ok(b.String()), nil
		},
	}
	cancel := &Command{
		Name:        "cancel",
		Description: "Cancel an agent (or all with no id)",
		Usage:       "/agents cancel [id]",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			if id := parsed.Subcommand(); id != "" {
				if !cmdCtx.Agents.Cancel(id) {
					return Fail("Agent not found: " + id), nil
				}
				return Ok("Cancelled " + id), nil
			}
			n := cmdCtx.Agents.CancelAll()
			return Ok(fmt.Sprintf("Cancelled %d agents", n)), nil
		},
	}
	stats := &Command{
		Name:        "stats",
		Description: "Show agent statistics",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			s := cmdCtx.Agents.GetStats()
			var b strings.Builder
			fmt.Fprintf(&b, "Agents: %d\n", s.Total)
			for state, n := range s.ByState {
				fmt.Fprintf(&b, "  %s: %d\n", state, n)
			}
			fmt.Fprintf(&b, "Tokens: %d, tool calls: %d, iterations: %d\n",
				s.TotalUsage.TokensUsed, s.TotalUsage.ToolCalls, s.TotalUsage.Iterations)
			return Ok(b.String()), nil
		},
	}

	return &Command{
		Name:        "agents",
		Description: "Inspect and control agents",
		Usage:       "/agents <list|cancel|stats>",
		Category:    CategoryControl,
		Subcommands: map[string]*Command{"list": list, "cancel": cancel, "stats": stats},
		Handler:     subcommandHelp("agents", []string{"list", "cancel", "stats"}),
	}
}

func shellsCommand() *Command {
	list := &Command{
		Name:        "list",
		Description: "List shells",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			shells := cmdCtx.Shells.ListShells()
			if len(shells) == 0 {
				return Ok("No shells."), nil
			}
			var b strings.Builder
			for _, p := range shells {
				fmt.Fprintf(&b, "%s  [%s]  %s\n", p.ID, p.Status(), p.Command)
			}
			return Ok(b.String()), nil
		},
	}
	kill := &Command{
		Name:        "kill",
		Description: "Kill a shell (or all with no id)",
		Usage:       "/shells kill [id]",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			if id := parsed.Subcommand(); id != "" {
				proc, ok := cmdCtx.Shells.GetShell(id)
				if !ok {
					return Fail("Shell not found: " + id), nil
				}
				if err := proc.Kill(); err != nil {
					return Fail(err.Error()), nil
				}
				return Ok("Killed " + id), nil
			}
			n := cmdCtx.Shells.KillAll()
			return Ok(fmt.Sprintf("Killed %d shells", n)), nil
		},
	}

	return &Command{
		Name:        "shells",
		Description: "Inspect and control background shells",
		Usage:       "/shells <list|kill>",
		Category:    CategoryControl,
		Subcommands: map[string]*Command{"list": list, "kill": kill},
		Handler:     subcommandHelp("shells", []string{"list", "kill"}),
	}
}

func toolsCommand() *Command {
	list := &Command{
		Name:        "list",
		Description: "List registered tools",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			var b strings.Builder
			for _, t := range cmdCtx.Tools.List() {
				desc := t.Descriptor()
				fmt.Fprintf(&b, "%-14s [%s]  %s\n", desc.Name, desc.Category, desc.Description)
			}
			if b.Len() == 0 {
				return Ok("No tools registered."), nil
			}
			return Ok(b.String()), nil
		},
	}
	history := &Command{
		Name:        "history",
		Description: "Show recent tool executions",
		Handler: func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
			entries := cmdCtx.ToolExec.History()
			if len(entries) == 0 {
				return Ok("No tool executions yet."), nil
			}
			var b strings.Builder
			for _, e := range entries {
				status := "ok"
				if e.Result.IsError {
					status = "error"
				}
				fmt.Fprintf(&b, "%s  %-14s %-5s %dms\n",
					e.StartedAt.Format(time.TimeOnly), e.ToolName, status, e.Duration().Milliseconds())
			}
			return Ok(b.String()), nil
		},
	}

	return &Command{
		Name:        "tools",
		Description: "Inspect the tool registry",
		Usage:       "/tools <list|history>",
		Category:    CategoryDebug,
		Subcommands: map[string]*Command{"list": list, "history": history},
		Handler:     subcommandHelp("tools", []string{"list", "history"}),
	}
}

func subcommandHelp(name string, subs []string) Handler {
	return func(ctx context.Context, parsed *ParsedCommand, cmdCtx *Context) (*Result, error) {
		return Ok(fmt.Sprintf("Usage: /%s <%s>", name, strings.Join(subs, "|"))), nil
	}
}
