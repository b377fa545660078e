package model

// RawEntry is one decoded line of a session file. Values keep the shapes the
// JSON decoder produced (string, float64, bool, map, slice, nil). The
// normalizer never mutates a RawEntry.
type RawEntry map[string]any

// ToolUse carries the attributes of a recognized tool invocation. Input is
// kept as the raw decoded structure, not display text.
type ToolUse struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Input any    `json:"input"`
}

// NormalizedEntry is the canonical form of a RawEntry. Raw fields that
// resolved to a canonical name land either in a dedicated field or in Extra
// (keyed by canonical name); fields that resolved to nothing land in Unknown
// under an "unknown_" prefix, so nothing is silently dropped.
type NormalizedEntry struct {
	Type      string
	Role      string
	Content   string
	Version   string
	Timestamp string
	UUID      string
	SessionID string

	Tool       *ToolUse
	ToolResult any

	// Important is set by the system-entry importance scan. It is only
	// meaningful when Type resolved to a system entry.
	Important bool

	// Fallback marks entries whose content could not be matched by any
	// extraction rule and was stringified instead.
	Fallback bool

	Extra   map[string]any
	Unknown map[string]any

	// Raw is the untouched source entry, kept for debugging and diagnostics.
	Raw RawEntry
}

// UnknownFieldPrefix qualifies preserved fields that had no canonical mapping.
const UnknownFieldPrefix = "unknown_"

// HasTool reports whether the entry was classified as a tool invocation.
func (e *NormalizedEntry) HasTool() bool {
	return e.Tool != nil
}
