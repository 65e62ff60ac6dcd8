package droid

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the accepted forms of a tool list.
func (ToolList) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Tool names, as a list or a string separated by commas or whitespace",
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
	}
}

// ConfigSchema returns the JSON Schema of the droid settings.
func ConfigSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.Title = "droid engine settings"
	return schema
}

// ConfigSchemaJSON returns ConfigSchema indented for display.
func ConfigSchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(ConfigSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config schema: %w", err)
	}
	return data, nil
}
