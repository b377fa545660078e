package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudeview/internal/mappings"
	"claudeview/internal/model"
	"claudeview/internal/parser"
)

func newDefaultMatcher() *parser.ToolMatcher {
	return parser.NewToolMatcher(mappings.Defaults().ToolPatterns)
}

func TestToolMatcher_Classify(t *testing.T) {
	m := newDefaultMatcher()

	tests := []struct {
		name        string
		entryType   string
		raw         model.RawEntry
		expMatch    bool
		expName     string
		expID       string
		expConsumed []string
	}{
		{
			name:      "Standard Tool Use",
			entryType: "tool_use",
			raw: model.RawEntry{
				"type":  "tool_use",
				"name":  "Bash",
				"id":    "toolu_01",
				"input": map[string]any{"command": "ls"},
			},
			expMatch:    true,
			expName:     "Bash",
			expID:       "toolu_01",
			expConsumed: []string{"name", "id", "input"},
		},
		{
			name:      "Alternate Field Spellings",
			entryType: "function_call",
			raw: model.RawEntry{
				"function":  "Search",
				"call_id":   "c-9",
				"arguments": map[string]any{"query": "drift"},
			},
			expMatch:    true,
			expName:     "Search",
			expID:       "c-9",
			expConsumed: []string{"function", "call_id", "arguments"},
		},
		{
			name:      "Missing Attributes Stay Unset",
			entryType: "tool",
			raw:       model.RawEntry{"type": "tool"},
			expMatch:  true,
		},
		{
			name:      "Non Tool Type",
			entryType: "assistant",
			raw:       model.RawEntry{"name": "Bash"},
			expMatch:  false,
		},
		{
			name:      "Candidate Order Wins",
			entryType: "tool_use",
			raw: model.RawEntry{
				"name": "First",
				"tool": "Second",
			},
			expMatch:    true,
			expName:     "First",
			expConsumed: []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, consumed, ok := m.Classify(tt.entryType, tt.raw)
			if !tt.expMatch {
				assert.False(t, ok)
				assert.Nil(t, tool)
				return
			}
			require.True(t, ok)
			require.NotNil(t, tool)
			assert.Equal(t, tt.expName, tool.Name)
			assert.Equal(t, tt.expID, tool.ID)
			assert.ElementsMatch(t, tt.expConsumed, consumed)
		})
	}
}

func TestToolMatcher_InputIsRawPayload(t *testing.T) {
	m := newDefaultMatcher()

	input := map[string]any{"pattern": "*.go", "recursive": true}
	tool, _, ok := m.Classify("tool_use", model.RawEntry{"name": "Glob", "input": input})
	require.True(t, ok)
	assert.Equal(t, input, tool.Input)
}

func TestToolMatcher_NonStringNameIgnored(t *testing.T) {
	m := newDefaultMatcher()

	tool, consumed, ok := m.Classify("tool_use", model.RawEntry{"name": float64(42)})
	require.True(t, ok)
	assert.Empty(t, tool.Name)
	// The field still counts as consumed by the match.
	assert.Contains(t, consumed, "name")
}

func TestToolMatcher_ClassifyBlock(t *testing.T) {
	m := newDefaultMatcher()

	tool, ok := m.ClassifyBlock(map[string]any{
		"type":  "tool_use",
		"name":  "Edit",
		"input": map[string]any{"file_path": "/tmp/x"},
	})
	require.True(t, ok)
	assert.Equal(t, "Edit", tool.Name)

	_, ok = m.ClassifyBlock(map[string]any{"type": "text", "text": "hello"})
	assert.False(t, ok)
}
