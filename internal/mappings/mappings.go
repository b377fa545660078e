package mappings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Rule kinds understood by the content extractor.
const (
	RuleString = "string"
	RuleArray  = "array"
	RuleObject = "object"
)

// ConfigError reports a malformed or ambiguous field-mappings resource. It
// always names the offending section and entry so the operator can fix the
// file directly.
type ConfigError struct {
	Section string
	Name    string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid field mappings: %s %q: %s", e.Section, e.Name, e.Reason)
}

// AliasMap maps a canonical field name to its known raw-field spellings,
// most common variant first.
type AliasMap map[string][]string

// ExtractionRule is one step of the content extraction order. Fields only
// applies to the array and object kinds.
type ExtractionRule struct {
	Kind   string   `json:"kind"`
	Fields []string `json:"fields,omitempty"`
}

// ToolPatterns describes how tool invocations are recognized: the entry type
// tags that indicate one, and the ordered candidate fields for each attribute.
type ToolPatterns struct {
	UseTypes    []string `json:"tool_use_types"`
	NameFields  []string `json:"tool_name_fields"`
	IDFields    []string `json:"tool_id_fields"`
	InputFields []string `json:"tool_input_fields"`
}

// SpecialEntry overrides general normalization for one entry type. A
// non-empty MinimalFields restricts the output to exactly those raw fields;
// ImportanceMarkers triggers a content scan instead.
type SpecialEntry struct {
	MinimalFields     []string `json:"minimal_fields,omitempty"`
	RetainDropped     bool     `json:"retain_dropped,omitempty"`
	ImportanceMarkers []string `json:"importance_markers,omitempty"`
}

// Mappings is the full field-mappings resource. Comment and Updated are
// operator notes with no runtime meaning.
type Mappings struct {
	Comment        string                  `json:"comment,omitempty"`
	Updated        string                  `json:"updated,omitempty"`
	FieldAliases   AliasMap                `json:"field_aliases"`
	ContentRules   []ExtractionRule        `json:"content_rules"`
	ToolPatterns   ToolPatterns            `json:"tool_patterns"`
	SpecialEntries map[string]SpecialEntry `json:"special_entries"`
}

// Load reads a field-mappings file. An empty path returns the built-in
// defaults. A file that exists but does not parse or validate is a fatal
// configuration error, not a fallback case.
func Load(path string) (*Mappings, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", path).Msg("Field mappings file not found, using defaults")
			return Defaults(), nil
		}
		return nil, fmt.Errorf("failed to read field mappings %s: %w", path, err)
	}

	var m Mappings
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse field mappings %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Str("file", path).Int("aliases", len(m.FieldAliases)).Int("rules", len(m.ContentRules)).Msg("Loaded field mappings")
	return &m, nil
}

// Validate checks structural validity of the resource. Alias ambiguity is
// checked separately when the registry builds its reverse index.
func (m *Mappings) Validate() error {
	for i, rule := range m.ContentRules {
		switch rule.Kind {
		case RuleString:
		case RuleArray, RuleObject:
			if len(rule.Fields) == 0 {
				return &ConfigError{
					Section: "content_rules",
					Name:    fmt.Sprintf("rule[%d]", i),
					Reason:  rule.Kind + " rule needs at least one candidate field",
				}
			}
		default:
			return &ConfigError{
				Section: "content_rules",
				Name:    fmt.Sprintf("rule[%d]", i),
				Reason:  fmt.Sprintf("unknown rule kind %q", rule.Kind),
			}
		}
	}

	for typeTag, special := range m.SpecialEntries {
		if len(special.MinimalFields) == 0 && len(special.ImportanceMarkers) == 0 {
			return &ConfigError{
				Section: "special_entries",
				Name:    typeTag,
				Reason:  "needs minimal_fields or importance_markers",
			}
		}
	}

	return nil
}

// Defaults returns the built-in mappings covering every producer version
// observed so far.
func Defaults() *Mappings {
	return &Mappings{
		FieldAliases: AliasMap{
			"type":         {"type", "entryType", "kind"},
			"role":         {"role", "sender", "author"},
			"content":      {"message", "content", "text", "body", "data"},
			"timestamp":    {"timestamp", "time", "created", "createdAt", "datetime"},
			"version":      {"version", "ver", "v"},
			"uuid":         {"uuid", "id"},
			"session_id":   {"sessionId", "session_id"},
			"parent_uuid":  {"parentUuid", "parent_uuid"},
			"request_id":   {"requestId", "request_id"},
			"tool_result":  {"toolUseResult", "tool_result", "toolResult", "result", "output"},
			"is_meta":      {"isMeta"},
			"is_sidechain": {"isSidechain"},
			"user_type":    {"userType"},
			"working_dir":  {"cwd", "workingDir"},
			"git_branch":   {"gitBranch"},
			"level":        {"level"},
			"summary":      {"summary"},
			"leaf_uuid":    {"leafUuid"},
		},
		ContentRules: []ExtractionRule{
			{Kind: RuleString},
			{Kind: RuleArray, Fields: []string{"text", "content", "value", "data"}},
			{Kind: RuleObject, Fields: []string{"content", "text", "value", "body"}},
		},
		ToolPatterns: ToolPatterns{
			UseTypes:    []string{"tool_use", "tool", "function_call"},
			NameFields:  []string{"name", "tool", "function"},
			IDFields:    []string{"id", "tool_id", "call_id"},
			InputFields: []string{"input", "arguments", "params", "data"},
		},
		SpecialEntries: map[string]SpecialEntry{
			"summary": {MinimalFields: []string{"type", "summary", "leafUuid"}},
			"system":  {ImportanceMarkers: []string{"error", "warning", "important", "failed"}},
		},
	}
}
