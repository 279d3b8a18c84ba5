package toolconv

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/haasonsaas/foundry/internal/tools"
)

// ToAnthropicTool converts a descriptor to the Anthropic tool definition:
// {name, description, input_schema}.
func ToAnthropicTool(desc tools.Descriptor) (anthropic.ToolUnionParam, error) {
	var schema anthropic.ToolInputSchemaParam
	if err := json.Unmarshal(desc.InputSchema(), &schema); err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("invalid tool schema for %s: %w", desc.Name, err)
	}

	param := anthropic.ToolUnionParamOfTool(schema, desc.Name)
	if param.OfTool == nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("invalid tool schema for %s: missing tool definition", desc.Name)
	}
	param.OfTool.Description = anthropic.String(desc.Description)
	return param, nil
}

// ToAnthropicTools converts a tool list to Anthropic tool definitions.
func ToAnthropicTools(list []tools.Tool) ([]anthropic.ToolUnionParam, error) {
	if len(list) == 0 {
		return nil, nil
	}
	result := make([]anthropic.ToolUnionParam, 0, len(list))
	for _, t := range list {
		param, err := ToAnthropicTool(t.Descriptor())
		if err != nil {
			return nil, err
		}
		result = append(result, param)
	}
	return result, nil
}
