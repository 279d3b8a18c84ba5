package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry manages command registrations. It keeps a canonical name map and
// a parallel alias map; mutation happens at startup, runtime reads are
// lock-cheap.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]string
	logger   *slog.Logger
}

// NewRegistry creates a command registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
		logger:   logger.With("component", "commands"),
	}
}

// Register adds a command. Name collisions fail registration; aliases that
// collide with existing names or aliases are skipped with a warning rather
// than failing the whole command.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("command is nil")
	}
	if cmd.Name == "" {
		return fmt.Errorf("command name is required")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command handler is required")
	}

	name := strings.ToLower(strings.TrimSpace(cmd.Name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	if existing, exists := r.aliases[name]; exists {
		return fmt.Errorf("command name %q conflicts with alias for %q", name, existing)
	}

	r.commands[name] = cmd

	for _, alias := range cmd.Aliases {
		aliasLower := strings.ToLower(strings.TrimSpace(alias))
		if aliasLower == "" || aliasLower == name {
			continue
		}
		if _, exists := r.commands[aliasLower]; exists {
			r.logger.Warn("alias conflicts with command, skipping", "alias", aliasLower, "command", name)
			continue
		}
		if _, exists := r.aliases[aliasLower]; exists {
			r.logger.Warn("alias already registered, skipping", "alias", aliasLower, "command", name)
			continue
		}
		r.aliases[aliasLower] = name
	}

	return nil
}

// Resolve returns a command by canonical name or alias.
func (r *Registry) Resolve(name string) (*Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cmd, exists := r.commands[name]; exists {
		return cmd, true
	}
	if canonical, exists := r.aliases[name]; exists {
		if cmd, exists := r.commands[canonical]; exists {
			return cmd, true
		}
	}
	return nil, false
}

// ListCommands returns commands sorted by name, optionally restricted to a
// category ("" means all).
func (r *Registry) ListCommands(category Category) []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if category != "" && cmd.Category != category {
			continue
		}
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetCategories groups commands by category, sorted within each group.
func (r *Registry) GetCategories() map[Category][]*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[Category][]*Command)
	for _, cmd := range r.commands {
		cat := cmd.Category
		if cat == "" {
			cat = CategoryGeneral
		}
		result[cat] = append(result[cat], cmd)
	}
	for _, cmds := range result {
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	}
	return result
}

// Names returns all canonical command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
