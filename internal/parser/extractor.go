package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"claudeview/internal/mappings"
)

// maxExtractDepth bounds recursion into nested content so a pathological
// entry cannot blow the stack.
const maxExtractDepth = 20

// Extract turns an arbitrary raw content value into display text by trying
// the configured rules in order; the first rule whose structure matches the
// value wins. It never fails: a value no rule matches yields ok=false and
// the caller decides how to degrade.
func Extract(value any, rules []mappings.ExtractionRule) (string, bool) {
	if value == nil {
		return "", false
	}

	for _, rule := range rules {
		switch rule.Kind {
		case mappings.RuleString:
			if s, ok := value.(string); ok {
				return s, true
			}
		case mappings.RuleArray:
			if items, ok := value.([]any); ok {
				return extractArray(items, rule.Fields)
			}
		case mappings.RuleObject:
			if obj, ok := value.(map[string]any); ok {
				return extractObject(obj, rule.Fields)
			}
		}
	}

	return "", false
}

// extractArray probes each element independently and joins the results with
// newlines, preserving element order. Elements yielding nothing are skipped.
func extractArray(items []any, fields []string) (string, bool) {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := extractText(item, fields, 0); ok {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}
	return strings.Join(texts, "\n"), true
}

// extractObject probes the candidate fields in order and returns the first
// hit.
func extractObject(obj map[string]any, fields []string) (string, bool) {
	for _, field := range fields {
		if v, ok := obj[field]; ok {
			if text, ok := extractText(v, fields, 0); ok {
				return text, true
			}
		}
	}
	return "", false
}

// extractText resolves one value to text. Plain strings and scalars are used
// directly; containers are probed with the same candidate fields one level
// at a time, up to maxExtractDepth.
func extractText(value any, fields []string, depth int) (string, bool) {
	if value == nil || depth > maxExtractDepth {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case map[string]any:
		for _, field := range fields {
			if inner, ok := v[field]; ok {
				if text, ok := extractText(inner, fields, depth+1); ok {
					return text, true
				}
			}
		}
		return "", false
	case []any:
		texts := make([]string, 0, len(v))
		for _, item := range v {
			if text, ok := extractText(item, fields, depth+1); ok {
				texts = append(texts, text)
			}
		}
		if len(texts) == 0 {
			return "", false
		}
		return strings.Join(texts, "\n"), true
	default:
		return "", false
	}
}

// Stringify produces the best-effort fallback form of a value no extraction
// rule matched. The result is flagged low-confidence by the caller.
func Stringify(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case map[string]any, []any:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", value)
}
