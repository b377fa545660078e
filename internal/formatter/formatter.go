package formatter

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"claudeview/config"
	"claudeview/internal/model"
	"claudeview/internal/parser"
	"claudeview/internal/util"
)

// unparsedPlaceholder is shown when no text at all could be extracted from
// an entry. Internal error detail never reaches ordinary rendering.
const unparsedPlaceholder = "[unparsed entry]"

// Formatter renders normalized entries as a conversation.
type Formatter interface {
	FormatEntry(entry *model.NormalizedEntry) (string, bool)
}

type conversationFormatter struct {
	theme      Theme
	opts       ShowOptions
	limits     config.TruncationConfig
	timestamps bool
}

func NewConversationFormatter(theme Theme, opts ShowOptions, limits config.TruncationConfig, timestamps bool) Formatter {
	return &conversationFormatter{
		theme:      theme,
		opts:       opts,
		limits:     limits,
		timestamps: timestamps,
	}
}

// FormatEntry renders one entry. The second return is false when the active
// show options filter the entry out entirely.
func (f *conversationFormatter) FormatEntry(entry *model.NormalizedEntry) (string, bool) {
	switch {
	case entry.Type == "summary" || entry.Extra["summary"] != nil:
		return f.formatSummary(entry)
	case entry.HasTool():
		return f.formatTool(entry)
	}

	switch entry.Role {
	case "user":
		if !f.opts.Users {
			return "", false
		}
		return f.formatMessage(entry, f.theme.User, "User"), true
	case "assistant":
		if !f.opts.Assistants {
			return "", false
		}
		return f.formatMessage(entry, f.theme.Assistant, "Assistant"), true
	case "system":
		if !f.opts.System && !entry.Important {
			return "", false
		}
		label := "System"
		style := f.theme.System
		if entry.Important {
			label = "System (important)"
			style = f.theme.Error
		}
		return f.formatMessage(entry, style, label), true
	}

	// Unrecognized roles still render; graceful degradation means the
	// conversation never has silent holes.
	if !f.opts.Metadata && entry.Content == "" && len(entry.Unknown) == 0 {
		return "", false
	}
	return f.formatMessage(entry, f.theme.Dim, entry.Type), true
}

func (f *conversationFormatter) formatMessage(entry *model.NormalizedEntry, style lipgloss.Style, label string) string {
	var b strings.Builder

	header := label
	if f.timestamps && entry.Timestamp != "" {
		if ts, err := util.ParseTimeFlexible(entry.Timestamp); err == nil {
			header = fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), label)
		}
	}
	b.WriteString(style.Render(header+":") + " ")

	content := entry.Content
	if content == "" {
		content = f.theme.Dim.Render(unparsedPlaceholder)
	} else {
		content = f.truncate(content, f.limits.Default)
	}
	b.WriteString(content)

	if f.opts.Metadata {
		f.writeMetadata(&b, entry)
	}
	if f.opts.Unknown && len(entry.Unknown) > 0 {
		f.writeUnknown(&b, entry)
	}

	return b.String()
}

func (f *conversationFormatter) formatSummary(entry *model.NormalizedEntry) (string, bool) {
	if !f.opts.Summaries {
		return "", false
	}

	summary, _ := entry.Extra["summary"].(string)
	if summary == "" {
		summary = "N/A"
	}
	out := f.theme.Summary.Render("Summary:") + " " + summary
	if f.opts.Metadata {
		if leaf, ok := entry.Extra["leaf_uuid"].(string); ok {
			out += "\n   " + f.theme.Metadata.Render("Session: "+leaf)
		}
	}
	return out, true
}

func (f *conversationFormatter) formatTool(entry *model.NormalizedEntry) (string, bool) {
	if !f.opts.Tools {
		return "", false
	}

	var b strings.Builder
	name := entry.Tool.Name
	if name == "" {
		name = "Unknown Tool"
	}
	b.WriteString(f.theme.ToolName.Render("Tool: " + name))

	if f.opts.ToolDetails && entry.Tool.ID != "" {
		b.WriteString("\n   " + f.theme.Metadata.Render("ID: "+entry.Tool.ID))
	}

	if input, ok := entry.Tool.Input.(map[string]any); ok {
		keys := make([]string, 0, len(input))
		for key := range input {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := f.truncate(parser.Stringify(input[key]), f.limits.ToolParam)
			b.WriteString("\n   " + f.theme.ToolParam.Render(key+": "+value))
		}
	} else if entry.Tool.Input != nil {
		value := f.truncate(parser.Stringify(entry.Tool.Input), f.limits.ToolParam)
		b.WriteString("\n   " + f.theme.ToolParam.Render("input: "+value))
	}

	if result := f.formatToolResult(entry.ToolResult); result != "" {
		b.WriteString("\n" + result)
	}

	return b.String(), true
}

func (f *conversationFormatter) formatToolResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		text := strings.TrimSpace(v)
		if strings.HasPrefix(text, "Error:") {
			return "   " + f.theme.Error.Render(f.truncate(text, f.limits.Error))
		}
		return "   " + f.theme.ToolOutput.Render("Result: "+f.truncate(text, f.limits.ToolResult))
	default:
		text := f.truncate(parser.Stringify(v), f.limits.ToolResult)
		return "   " + f.theme.ToolOutput.Render("Result: "+text)
	}
}

func (f *conversationFormatter) writeMetadata(b *strings.Builder, entry *model.NormalizedEntry) {
	if entry.UUID != "" {
		b.WriteString("\n   " + f.theme.Metadata.Render("uuid: "+entry.UUID))
	}
	if entry.SessionID != "" {
		b.WriteString("\n   " + f.theme.Metadata.Render("session: "+entry.SessionID))
	}
	if entry.Version != "" {
		b.WriteString("\n   " + f.theme.Metadata.Render("version: "+entry.Version))
	}
}

func (f *conversationFormatter) writeUnknown(b *strings.Builder, entry *model.NormalizedEntry) {
	keys := make([]string, 0, len(entry.Unknown))
	for key := range entry.Unknown {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := f.truncate(parser.Stringify(entry.Unknown[key]), f.limits.Default)
		b.WriteString("\n   " + f.theme.Dim.Render(key+": "+value))
	}
}

func (f *conversationFormatter) truncate(text string, max int) string {
	if f.opts.NoTruncate || max <= 0 || len(text) <= max {
		return text
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
