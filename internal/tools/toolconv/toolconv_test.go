package toolconv

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/foundry/internal/tools"
)

func demoDescriptor() tools.Descriptor {
	max := 10.0
	return tools.Descriptor{
		Name:        "search",
		Description: "Search the workspace",
		Category:    tools.CategoryFile,
		Params: []tools.Param{
			{Name: "query", Type: tools.TypeString, Description: "Search query", Required: true},
			{Name: "limit", Type: tools.TypeInteger, Maximum: &max, Default: 5},
		},
	}
}

func TestToOpenAITool(t *testing.T) {
	converted := ToOpenAITool(demoDescriptor())

	if string(converted.Type) != "function" {
		t.Errorf("type = %s, want function", converted.Type)
	}
	if converted.Function == nil {
		t.Fatal("function missing")
	}
	if converted.Function.Name != "search" {
		t.Errorf("name = %s", converted.Function.Name)
	}
	if converted.Function.Description != "Search the workspace" {
		t.Errorf("description = %s", converted.Function.Description)
	}

	params, ok := converted.Function.Parameters.(map[string]any)
	if !ok {
		t.Fatal("parameters not a map")
	}
	properties := params["properties"].(map[string]any)
	if _, ok := properties["query"]; !ok {
		t.Error("query property missing")
	}
	required := params["required"].([]any)
	if len(required) != 1 || required[0] != "query" {
		t.Errorf("required = %v", required)
	}
}

func TestToAnthropicTool(t *testing.T) {
	param, err := ToAnthropicTool(demoDescriptor())
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if param.OfTool == nil {
		t.Fatal("tool variant missing")
	}
	if param.OfTool.Name != "search" {
		t.Errorf("name = %s", param.OfTool.Name)
	}

	// The input schema must survive a JSON round-trip without losing
	// properties or required.
	payload, err := json.Marshal(param.OfTool.InputSchema)
	if err != nil {
		t.Fatalf("marshal input schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal input schema: %v", err)
	}
	properties, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatal("properties missing after round-trip")
	}
	if _, ok := properties["limit"]; !ok {
		t.Error("limit property lost in projection")
	}
}

func TestProjectionsAgree(t *testing.T) {
	desc := demoDescriptor()
	openaiTool := ToOpenAITool(desc)
	anthropicTool, err := ToAnthropicTool(desc)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if openaiTool.Function.Name != anthropicTool.OfTool.Name {
		t.Error("projections disagree on tool name")
	}
}
