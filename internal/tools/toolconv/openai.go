// Package toolconv projects tool descriptors to provider wire schemas.
package toolconv

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/foundry/internal/tools"
)

// ToOpenAITool converts a descriptor to the OpenAI function schema:
// {type:"function", function:{name, description, parameters}}.
func ToOpenAITool(desc tools.Descriptor) openai.Tool {
	var schemaMap map[string]any
	if err := json.Unmarshal(desc.InputSchema(), &schemaMap); err != nil {
		schemaMap = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  schemaMap,
		},
	}
}

// ToOpenAITools converts a tool list to OpenAI function schemas.
func ToOpenAITools(list []tools.Tool) []openai.Tool {
	result := make([]openai.Tool, len(list))
	for i, t := range list {
		result[i] = ToOpenAITool(t.Descriptor())
	}
	return result
}
