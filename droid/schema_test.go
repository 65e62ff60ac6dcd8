package droid_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/acpkit/droid"
)

func TestConfigSchema(t *testing.T) {
	data, err := droid.ConfigSchemaJSON()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties: %s", data)

	for _, key := range []string{
		"cmd", "agent_name", "model", "reasoning_effort", "auto",
		"enabled_tools", "disabled_tools", "cwd", "lsp_framing", "fallback_to_text",
	} {
		assert.Contains(t, props, key)
	}

	tools, ok := props["enabled_tools"].(map[string]any)
	require.True(t, ok)
	oneOf, ok := tools["oneOf"].([]any)
	require.True(t, ok)
	assert.Len(t, oneOf, 2)

	auto := props["auto"].(map[string]any)
	assert.ElementsMatch(t, []any{"low", "medium", "high"}, auto["enum"])
}
