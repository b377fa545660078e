package parser

import (
	"claudeview/internal/mappings"
	"claudeview/internal/model"
)

// ToolMatcher recognizes tool-invocation entries and extracts their
// attributes through the configured candidate field lists. Read-only after
// construction.
type ToolMatcher struct {
	useTypes    map[string]struct{}
	nameFields  []string
	idFields    []string
	inputFields []string
}

func NewToolMatcher(patterns mappings.ToolPatterns) *ToolMatcher {
	useTypes := make(map[string]struct{}, len(patterns.UseTypes))
	for _, t := range patterns.UseTypes {
		useTypes[t] = struct{}{}
	}
	return &ToolMatcher{
		useTypes:    useTypes,
		nameFields:  patterns.NameFields,
		idFields:    patterns.IDFields,
		inputFields: patterns.InputFields,
	}
}

// IsToolType reports whether a resolved entry type tag indicates a tool
// invocation.
func (m *ToolMatcher) IsToolType(resolvedType string) bool {
	_, ok := m.useTypes[resolvedType]
	return ok
}

// Classify extracts name, id and input from a tool entry. Only entries whose
// resolved type is a configured tool type are considered. A missing
// attribute is not an error, it simply stays unset. Input passes through as
// its raw structure; it is a payload, not display text. The returned field
// names are the raw keys the match consumed, so the normalizer can keep them
// out of the unknown-field capture.
func (m *ToolMatcher) Classify(resolvedType string, raw model.RawEntry) (*model.ToolUse, []string, bool) {
	if !m.IsToolType(resolvedType) {
		return nil, nil, false
	}

	tool := &model.ToolUse{}
	var consumed []string
	if v, field, ok := firstField(raw, m.nameFields); ok {
		consumed = append(consumed, field)
		if s, ok := v.(string); ok {
			tool.Name = s
		}
	}
	if v, field, ok := firstField(raw, m.idFields); ok {
		consumed = append(consumed, field)
		if s, ok := v.(string); ok {
			tool.ID = s
		}
	}
	if v, field, ok := firstField(raw, m.inputFields); ok {
		consumed = append(consumed, field)
		tool.Input = v
	}

	return tool, consumed, true
}

// ClassifyBlock applies the same matching to one element of a content array,
// where producers nest tool invocations inside assistant messages.
func (m *ToolMatcher) ClassifyBlock(block map[string]any) (*model.ToolUse, bool) {
	blockType, _ := block["type"].(string)
	tool, _, ok := m.Classify(blockType, block)
	return tool, ok
}

func firstField(entry map[string]any, candidates []string) (any, string, bool) {
	for _, field := range candidates {
		if v, ok := entry[field]; ok {
			return v, field, true
		}
	}
	return nil, "", false
}
