package toolconv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/foundry/internal/tools"
)

// Callable is a framework-neutral tool adapter: name, description, JSON
// Schema, and an invoke function taking JSON arguments. It is the third
// projection next to the OpenAI and Anthropic forms, for embedding tools in
// general-purpose agent frameworks.
type Callable struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	Invoke      func(ctx context.Context, args json.RawMessage) (string, error)
}

// ToCallable wraps a tool as a Callable routed through the executor, so
// validation, deadline, and history apply to framework-originated calls too.
func ToCallable(tool tools.Tool, executor *tools.Executor, ec *tools.ExecContext) Callable {
	desc := tool.Descriptor()
	return Callable{
		Name:        desc.Name,
		Description: desc.Description,
		Schema:      desc.InputSchema(),
		Invoke: func(ctx context.Context, args json.RawMessage) (string, error) {
			decoded := map[string]any{}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &decoded); err != nil {
					return "", fmt.Errorf("decode arguments for %s: %w", desc.Name, err)
				}
			}
			result := executor.Execute(ctx, ec, desc.Name, decoded)
			if result.IsError {
				return "", fmt.Errorf("%s", result.Content)
			}
			return result.Content, nil
		},
	}
}

// ToCallables wraps every tool in the list.
func ToCallables(list []tools.Tool, executor *tools.Executor, ec *tools.ExecContext) []Callable {
	out := make([]Callable, len(list))
	for i, t := range list {
		out[i] = ToCallable(t, executor, ec)
	}
	return out
}
