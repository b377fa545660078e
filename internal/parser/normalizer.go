package parser

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"claudeview/internal/mappings"
	"claudeview/internal/model"
)

// Normalizer turns raw session entries into their canonical form.
type Normalizer interface {
	Normalize(raw model.RawEntry) *model.NormalizedEntry
}

type adaptiveNormalizer struct {
	registry *Registry
	rules    []mappings.ExtractionRule
	tools    *ToolMatcher
	special  *specialHandler
}

// NewAdaptiveNormalizer compiles the field mappings into the normalization
// pipeline. Configuration problems (including alias ambiguity) surface here,
// at startup; Normalize itself never fails.
func NewAdaptiveNormalizer(m *mappings.Mappings) (Normalizer, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	registry, err := NewRegistry(m.FieldAliases)
	if err != nil {
		return nil, err
	}

	return &adaptiveNormalizer{
		registry: registry,
		rules:    m.ContentRules,
		tools:    NewToolMatcher(m.ToolPatterns),
		special:  newSpecialHandler(m.SpecialEntries),
	}, nil
}

// Normalize runs the pipeline: rename fields, extract content text, classify
// tool structure, apply special-entry rules, capture unknowns. Any internal
// miss degrades the record instead of aborting it: a session view must
// always render something for every entry.
func (n *adaptiveNormalizer) Normalize(raw model.RawEntry) *model.NormalizedEntry {
	entryType := n.resolveType(raw)

	if rule, ok := n.special.minimalRule(entryType); ok {
		return n.normalizeMinimal(entryType, raw, rule)
	}

	entry := &model.NormalizedEntry{
		Type:    entryType,
		Extra:   make(map[string]any),
		Unknown: make(map[string]any),
		Raw:     raw,
	}

	var contentValue any
	var hasContent bool

	// sources records which raw key supplied each canonical value. An alias
	// that lost the probe still carries a value of its own and must not be
	// dropped with it.
	sources := make(map[string]struct{})

	for _, canonical := range n.registry.Canonicals() {
		value, source, ok := n.registry.FindField(raw, canonical)
		if !ok {
			continue
		}
		sources[source] = struct{}{}
		switch canonical {
		case "type":
			// Already resolved.
		case "role":
			entry.Role = asString(value)
		case "content":
			contentValue, hasContent = value, true
		case "version":
			entry.Version = asString(value)
		case "timestamp":
			entry.Timestamp = asString(value)
		case "uuid":
			entry.UUID = asString(value)
		case "session_id":
			entry.SessionID = asString(value)
		case "tool_result":
			entry.ToolResult = value
		default:
			entry.Extra[canonical] = value
		}
	}

	if hasContent {
		if text, ok := Extract(contentValue, n.rules); ok {
			entry.Content = text
		} else {
			entry.Content = Stringify(contentValue)
			entry.Fallback = true
			log.Debug().Str("type", entryType).Msg("No extraction rule matched content, using stringified fallback")
		}
	}

	if entry.Role == "" {
		entry.Role = n.resolveNestedRole(contentValue)
	}
	if entry.Role == "" {
		entry.Role = guessRole(entryType)
	}

	consumed := n.classifyTool(entry, raw, contentValue)

	for key, value := range raw {
		if _, ok := sources[key]; ok {
			continue
		}
		if _, ok := consumed[key]; ok {
			continue
		}
		entry.Unknown[model.UnknownFieldPrefix+key] = value
	}

	n.special.apply(entry)

	return entry
}

// normalizeMinimal copies only the configured minimal field set. Summaries
// are terse metadata; they skip content extraction, and unknown-field
// capture only happens when the rule opts into retaining dropped fields.
func (n *adaptiveNormalizer) normalizeMinimal(entryType string, raw model.RawEntry, rule mappings.SpecialEntry) *model.NormalizedEntry {
	entry := &model.NormalizedEntry{
		Type:    entryType,
		Extra:   make(map[string]any),
		Unknown: make(map[string]any),
		Raw:     raw,
	}

	allowed := make(map[string]struct{}, len(rule.MinimalFields))
	for _, field := range rule.MinimalFields {
		allowed[field] = struct{}{}
		value, ok := raw[field]
		if !ok {
			continue
		}
		canonical, resolved := n.registry.Resolve(field)
		if !resolved {
			canonical = field
		}
		switch canonical {
		case "type":
		case "uuid":
			entry.UUID = asString(value)
		default:
			entry.Extra[canonical] = value
		}
	}

	if rule.RetainDropped {
		for key, value := range raw {
			if _, ok := allowed[key]; !ok {
				entry.Unknown[model.UnknownFieldPrefix+key] = value
			}
		}
	}

	return entry
}

func (n *adaptiveNormalizer) resolveType(raw model.RawEntry) string {
	if value, _, ok := n.registry.FindField(raw, "type"); ok {
		return asString(value)
	}
	return ""
}

// resolveNestedRole probes a message-shaped content value for a role field,
// covering producers that nest role inside the message object.
func (n *adaptiveNormalizer) resolveNestedRole(contentValue any) string {
	obj, ok := contentValue.(map[string]any)
	if !ok {
		return ""
	}
	if value, _, ok := n.registry.FindField(obj, "role"); ok {
		return asString(value)
	}
	return ""
}

// classifyTool tries the entry itself first, then the blocks of an array
// content value, where assistant messages nest tool invocations. It returns
// the raw keys a top-level match consumed.
func (n *adaptiveNormalizer) classifyTool(entry *model.NormalizedEntry, raw model.RawEntry, contentValue any) map[string]struct{} {
	if tool, consumedFields, ok := n.tools.Classify(entry.Type, raw); ok {
		entry.Tool = tool
		consumed := make(map[string]struct{}, len(consumedFields))
		for _, field := range consumedFields {
			consumed[field] = struct{}{}
		}
		return consumed
	}

	for _, block := range contentBlocks(contentValue) {
		if tool, ok := n.tools.ClassifyBlock(block); ok {
			entry.Tool = tool
			break
		}
	}
	return nil
}

// contentBlocks digs out the element maps of an array-shaped content value,
// looking one level into a message object if needed.
func contentBlocks(contentValue any) []map[string]any {
	items, ok := contentValue.([]any)
	if !ok {
		if obj, isObj := contentValue.(map[string]any); isObj {
			items, ok = obj["content"].([]any)
		}
		if !ok {
			return nil
		}
	}

	blocks := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if block, isMap := item.(map[string]any); isMap {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func guessRole(entryType string) string {
	switch entryType {
	case "user", "human", "input":
		return "user"
	case "assistant", "ai", "claude", "output":
		return "assistant"
	case "system", "info", "meta":
		return "system"
	}
	return ""
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	}
	return Stringify(value)
}
