package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudeview/internal/mappings"
	"claudeview/internal/model"
	"claudeview/internal/parser"
)

func newNormalizer(t *testing.T) parser.Normalizer {
	t.Helper()
	normalizer, err := parser.NewAdaptiveNormalizer(mappings.Defaults())
	require.NoError(t, err)
	return normalizer
}

func TestNormalize_AliasedFields(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"sender": "user",
		"text":   "Hello",
	})

	assert.Equal(t, "user", entry.Role)
	assert.Equal(t, "Hello", entry.Content)
	assert.Empty(t, entry.Unknown)
}

func TestNormalize_ToolEntry(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"type":  "tool_use",
		"name":  "Read",
		"input": map[string]any{"path": "/f"},
	})

	require.True(t, entry.HasTool())
	assert.Equal(t, "Read", entry.Tool.Name)
	assert.Equal(t, map[string]any{"path": "/f"}, entry.Tool.Input)
	// Fields the tool match consumed are not unknown.
	assert.Empty(t, entry.Unknown)
}

func TestNormalize_NestedToolBlock(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"type": "assistant",
		"message": map[string]any{
			"role": "assistant",
			"content": []any{
				map[string]any{"type": "text", "text": "Let me read that."},
				map[string]any{"type": "tool_use", "name": "Read", "id": "tu_1", "input": map[string]any{"path": "/f"}},
			},
		},
	})

	assert.Equal(t, "assistant", entry.Role)
	assert.Equal(t, "Let me read that.", entry.Content)
	require.True(t, entry.HasTool())
	assert.Equal(t, "Read", entry.Tool.Name)
	assert.Equal(t, "tu_1", entry.Tool.ID)
}

func TestNormalize_UnknownFieldPreserved(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"type":      "user",
		"text":      "hi",
		"timestamp": "2025-01-01T00:00:00Z",
		"newField":  "v1",
	})

	assert.Equal(t, "v1", entry.Unknown["unknown_newField"])
	assert.Equal(t, "hi", entry.Content)
}

func TestNormalize_FieldConservation(t *testing.T) {
	normalizer := newNormalizer(t)

	raw := model.RawEntry{
		"type":      "user",
		"message":   map[string]any{"role": "user", "content": "hello"},
		"timestamp": "2025-01-01T00:00:00Z",
		"version":   "1.0.80",
		"uuid":      "u1",
		"sessionId": "s1",
		"cwd":       "/work",
		"gitBranch": "main",
		"mystery":   true,
		"alsoNovel": []any{"x"},
	}

	entry := normalizer.Normalize(raw)

	// Every raw key resolves to a canonical destination or lands in Unknown.
	resolvedDestinations := map[string]bool{
		"type":      entry.Type == "user",
		"message":   entry.Content == "hello",
		"timestamp": entry.Timestamp == "2025-01-01T00:00:00Z",
		"version":   entry.Version == "1.0.80",
		"uuid":      entry.UUID == "u1",
		"sessionId": entry.SessionID == "s1",
		"cwd":       entry.Extra["working_dir"] == "/work",
		"gitBranch": entry.Extra["git_branch"] == "main",
	}
	for key, present := range resolvedDestinations {
		assert.True(t, present, "raw key %s lost its value", key)
	}

	assert.Len(t, entry.Unknown, 2)
	assert.Equal(t, true, entry.Unknown["unknown_mystery"])
	assert.Equal(t, []any{"x"}, entry.Unknown["unknown_alsoNovel"])
}

func TestNormalize_LosingAliasPreserved(t *testing.T) {
	normalizer := newNormalizer(t)

	// Both keys are aliases of content. The first in declaration order wins
	// the canonical slot; the other still holds a value of its own and must
	// survive in Unknown rather than vanish.
	entry := normalizer.Normalize(model.RawEntry{
		"type":    "user",
		"message": "primary content",
		"text":    "secondary content",
	})

	assert.Equal(t, "primary content", entry.Content)
	assert.Equal(t, "secondary content", entry.Unknown["unknown_text"])

	// Same for the canonical spelling itself losing to an alias.
	entry = normalizer.Normalize(model.RawEntry{
		"type":    "user",
		"message": "wins",
		"content": "loses",
	})

	assert.Equal(t, "wins", entry.Content)
	assert.Equal(t, "loses", entry.Unknown["unknown_content"])
}

func TestNormalize_ExtractionFallback(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"type":    "user",
		"message": map[string]any{"usage": map[string]any{"tokens": float64(9)}},
	})

	assert.True(t, entry.Fallback)
	// The stringified form is still shown rather than nothing.
	assert.True(t, strings.Contains(entry.Content, "tokens"))
}

func TestNormalize_NeverFails(t *testing.T) {
	normalizer := newNormalizer(t)

	tests := []struct {
		name string
		raw  model.RawEntry
	}{
		{name: "Empty Entry", raw: model.RawEntry{}},
		{name: "Nil Values", raw: model.RawEntry{"type": nil, "message": nil}},
		{name: "Wrong Types", raw: model.RawEntry{"type": float64(3), "message": true, "timestamp": []any{}}},
		{name: "Deep Nesting", raw: model.RawEntry{"message": map[string]any{"content": map[string]any{"content": map[string]any{"content": "deep"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				entry := normalizer.Normalize(tt.raw)
				assert.NotNil(t, entry)
			})
		})
	}
}

func TestNormalize_SummaryMinimalFields(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"type":     "summary",
		"summary":  "Fixed the build",
		"leafUuid": "leaf-1",
		"extra":    "dropped",
	})

	assert.Equal(t, "summary", entry.Type)
	assert.Equal(t, "Fixed the build", entry.Extra["summary"])
	assert.Equal(t, "leaf-1", entry.Extra["leaf_uuid"])
	// Non-minimal fields are deliberately dropped, not kept as unknown.
	assert.Empty(t, entry.Unknown)
	assert.Empty(t, entry.Content)
}

func TestNormalize_SummaryRetainDropped(t *testing.T) {
	m := mappings.Defaults()
	rule := m.SpecialEntries["summary"]
	rule.RetainDropped = true
	m.SpecialEntries["summary"] = rule

	normalizer, err := parser.NewAdaptiveNormalizer(m)
	require.NoError(t, err)

	entry := normalizer.Normalize(model.RawEntry{
		"type":     "summary",
		"summary":  "s",
		"leafUuid": "l",
		"extra":    "kept",
	})

	assert.Equal(t, "kept", entry.Unknown["unknown_extra"])
}

func TestNormalize_SystemImportanceMarkers(t *testing.T) {
	normalizer := newNormalizer(t)

	tests := []struct {
		name      string
		content   string
		important bool
	}{
		{name: "Marker Present", content: "command failed with status 1", important: true},
		{name: "Case Sensitive", content: "FAILED loudly", important: false},
		{name: "No Marker", content: "session started", important: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := normalizer.Normalize(model.RawEntry{
				"type":    "system",
				"content": tt.content,
			})
			assert.Equal(t, tt.important, entry.Important)
		})
	}
}

func TestNormalize_RoleGuessedFromType(t *testing.T) {
	normalizer := newNormalizer(t)

	entry := normalizer.Normalize(model.RawEntry{
		"type":    "assistant",
		"message": "just text",
	})

	assert.Equal(t, "assistant", entry.Role)
	assert.Equal(t, "just text", entry.Content)
}
