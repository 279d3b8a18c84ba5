package agent

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Usage reports token consumption for one completion.
type Usage struct {
	TotalTokens int `json:"total_tokens"`
}

// Completion is one LLM round-trip result. Content and ToolCalls are
// mutually exclusive modes: content-only means the turn is final, tool calls
// mean the loop continues.
type Completion struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Provider is the single LLM capability the execution core consumes. Tool
// schemas are passed in OpenAI function form (see toolconv).
//
// Implementations must be safe for concurrent use; the manager runs several
// agents at once against one provider.
type Provider interface {
	Complete(ctx context.Context, messages []Message, toolSchemas []openai.Tool, model string) (*Completion, error)
}
