package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaMap builds the JSON Schema object for the descriptor's parameters:
// {"type":"object","properties":{...},"required":[...]}. The projection is
// deterministic (encoding/json sorts map keys) and carries every parameter
// field declared on the descriptor: type, description, enum, minimum,
// maximum, minLength, maxLength, and default.
func (d Descriptor) SchemaMap() map[string]any {
	properties := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))

	for _, p := range d.Params {
		prop := map[string]any{
			"type": string(p.Type),
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		if p.MinLength != nil {
			prop["minLength"] = *p.MinLength
		}
		if p.MaxLength != nil {
			prop["maxLength"] = *p.MaxLength
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// InputSchema marshals the parameter schema to JSON.
func (d Descriptor) InputSchema() json.RawMessage {
	payload, err := json.Marshal(d.SchemaMap())
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{},"required":[]}`)
	}
	return payload
}

// ValidateSchema compiles the descriptor's projected schema and returns an
// error if it is not a valid JSON Schema. The registry runs this on Register
// so a malformed descriptor is caught at startup, not at the provider.
func (d Descriptor) ValidateSchema() error {
	raw := d.InputSchema()
	if _, err := jsonschema.CompileString(d.Name+".schema.json", string(raw)); err != nil {
		return fmt.Errorf("tool %q schema: %w", d.Name, err)
	}
	return nil
}
