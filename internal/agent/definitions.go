package agent

import (
	"sync"
)

// TypeDefinition is the static record for an agent variant: a type tag plus
// default configuration. Variants are configuration, not subclasses.
type TypeDefinition struct {
	Name        string
	Description string
	Prompt      string
	Tools       []string
	Limits      ResourceLimits
	Model       string
}

// GeneralType is the fallback for unknown type names.
const GeneralType = "general"

// TypeRegistry maps type names to definitions. Populated once at startup.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]TypeDefinition
}

// NewTypeRegistry creates a registry pre-loaded with the built-in types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]TypeDefinition)}
	for _, def := range builtinTypes() {
		r.Register(def)
	}
	return r
}

// Register adds or replaces a type definition.
func (r *TypeRegistry) Register(def TypeDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[def.Name] = def
}

// Lookup resolves a type name, falling back to the general type when the
// name is unknown.
func (r *TypeRegistry) Lookup(name string) TypeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.types[name]; ok {
		return def
	}
	return r.types[GeneralType]
}

// Names returns the registered type names.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// ConfigForType builds the default config for a type definition.
func (r *TypeRegistry) ConfigForType(name string) Config {
	def := r.Lookup(name)
	return Config{
		AgentType:   def.Name,
		Description: def.Description,
		Prompt:      def.Prompt,
		Tools:       def.Tools,
		Limits:      def.Limits,
		Model:       def.Model,
	}
}

func builtinTypes() []TypeDefinition {
	return []TypeDefinition{
		{
			Name:        "explore",
			Description: "Explores a codebase or directory tree and reports findings",
			Prompt: "Focus on reading and searching. Map out structure, locate the " +
				"relevant files, and report what you find with file paths.",
			Tools:  []string{"read_file", "list_dir", "bash", "bash_output", "kill_shell", "fetch"},
			Limits: DefaultLimits(),
		},
		{
			Name:        "plan",
			Description: "Produces a step-by-step implementation plan",
			Prompt: "Do not modify anything. Read what you need, then produce a " +
				"concrete, ordered plan with the files to touch at each step.",
			Tools:  []string{"read_file", "list_dir", "fetch"},
			Limits: DefaultLimits(),
		},
		{
			Name:        "code-review",
			Description: "Reviews changes for correctness and style",
			Prompt: "Review the code in question. Point out bugs, risky patterns, " +
				"and style issues with file and line references. Do not rewrite code.",
			Tools:  []string{"read_file", "list_dir", "bash", "bash_output", "kill_shell"},
			Limits: DefaultLimits(),
		},
		{
			Name:        GeneralType,
			Description: "General-purpose agent with the full tool set",
			Prompt:      "",
			Tools:       nil, // all registered tools
			Limits:      DefaultLimits(),
		},
	}
}
