package tools

import (
	"fmt"
	"sync"
)

// Registry is a name-keyed tool collection. Registration happens at startup;
// lookups at runtime are cheap reads under an RWMutex. Registration order is
// preserved so tool lists presented to the model are stable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. It fails on an empty or duplicate name, and on a
// descriptor that does not project to a valid JSON Schema.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	desc := tool.Descriptor()
	if desc.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if err := desc.ValidateSchema(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool %q already registered", desc.Name)
	}
	r.tools[desc.Name] = tool
	r.order = append(r.order, desc.Name)
	return nil
}

// Deregister removes a tool by name, reporting whether it was present.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return false
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Exists reports whether a tool is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// ListByCategory returns tools of one category in registration order.
func (r *Registry) ListByCategory(cat Category) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0)
	for _, name := range r.order {
		if tool := r.tools[name]; tool.Descriptor().Category == cat {
			result = append(result, tool)
		}
	}
	return result
}

// Filter returns the tools whose names appear in names, preserving
// registration order. A nil filter returns every tool.
func (r *Registry) Filter(names []string) []Tool {
	if names == nil {
		return r.List()
	}
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(allowed))
	for _, name := range r.order {
		if _, ok := allowed[name]; ok {
			result = append(result, r.tools[name])
		}
	}
	return result
}

// Clear removes every tool.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]Tool)
	r.order = nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
