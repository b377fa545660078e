package mappings_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudeview/internal/mappings"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	m, err := mappings.Load("")
	require.NoError(t, err)
	assert.Equal(t, mappings.Defaults().FieldAliases, m.FieldAliases)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	m, err := mappings.Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ContentRules)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	content := `{
		"comment": "local overrides",
		"field_aliases": {"content": ["message", "payload"]},
		"content_rules": [{"kind": "string"}],
		"tool_patterns": {"tool_use_types": ["tool_use"]},
		"special_entries": {"system": {"importance_markers": ["fatal"]}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := mappings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"message", "payload"}, m.FieldAliases["content"])
	assert.Equal(t, []string{"fatal"}, m.SpecialEntries["system"].ImportanceMarkers)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := mappings.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		m          mappings.Mappings
		expSection string
	}{
		{
			name: "Valid Rules",
			m: mappings.Mappings{
				ContentRules: []mappings.ExtractionRule{
					{Kind: mappings.RuleString},
					{Kind: mappings.RuleArray, Fields: []string{"text"}},
					{Kind: mappings.RuleObject, Fields: []string{"content"}},
				},
			},
		},
		{
			name: "Unknown Rule Kind",
			m: mappings.Mappings{
				ContentRules: []mappings.ExtractionRule{{Kind: "regex"}},
			},
			expSection: "content_rules",
		},
		{
			name: "Array Rule Without Fields",
			m: mappings.Mappings{
				ContentRules: []mappings.ExtractionRule{{Kind: mappings.RuleArray}},
			},
			expSection: "content_rules",
		},
		{
			name: "Empty Special Entry",
			m: mappings.Mappings{
				SpecialEntries: map[string]mappings.SpecialEntry{"summary": {}},
			},
			expSection: "special_entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.expSection == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *mappings.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.expSection, cfgErr.Section)
		})
	}
}

func TestLoad_InvalidFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.json")
	content := `{"content_rules": [{"kind": "array"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := mappings.Load(path)
	var cfgErr *mappings.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestDefaults(t *testing.T) {
	m := mappings.Defaults()
	require.NoError(t, m.Validate())

	assert.Contains(t, m.FieldAliases["content"], "message")
	assert.Contains(t, m.ToolPatterns.UseTypes, "tool_use")
	assert.NotEmpty(t, m.SpecialEntries["summary"].MinimalFields)
	assert.NotEmpty(t, m.SpecialEntries["system"].ImportanceMarkers)
}
