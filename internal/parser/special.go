package parser

import (
	"strings"

	"claudeview/internal/mappings"
	"claudeview/internal/model"
)

// specialHandler applies per-entry-type overrides. The set of behaviors is
// closed: minimal-field restriction (summary), importance scanning (system),
// or nothing.
type specialHandler struct {
	rules map[string]mappings.SpecialEntry
}

func newSpecialHandler(rules map[string]mappings.SpecialEntry) *specialHandler {
	if rules == nil {
		rules = map[string]mappings.SpecialEntry{}
	}
	return &specialHandler{rules: rules}
}

// minimalRule returns the minimal-field rule for an entry type, if one is
// configured. Minimal entries bypass general normalization entirely.
func (h *specialHandler) minimalRule(entryType string) (mappings.SpecialEntry, bool) {
	rule, ok := h.rules[entryType]
	if !ok || len(rule.MinimalFields) == 0 {
		return mappings.SpecialEntry{}, false
	}
	return rule, true
}

// apply runs the post-extraction overrides on an already normalized entry.
func (h *specialHandler) apply(entry *model.NormalizedEntry) {
	rule, ok := h.rules[entry.Type]
	if !ok || len(rule.ImportanceMarkers) == 0 {
		return
	}

	// Case-sensitive exact substring match, first marker wins.
	for _, marker := range rule.ImportanceMarkers {
		if strings.Contains(entry.Content, marker) {
			entry.Important = true
			return
		}
	}
	entry.Important = false
}
