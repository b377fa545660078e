package formatter

import (
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named set of styles for conversation rendering. The mono theme
// carries zero-value styles, which lipgloss renders as plain text.
type Theme struct {
	Name string

	User       lipgloss.Style
	Assistant  lipgloss.Style
	System     lipgloss.Style
	Summary    lipgloss.Style
	ToolName   lipgloss.Style
	ToolParam  lipgloss.Style
	ToolOutput lipgloss.Style
	Error      lipgloss.Style
	Metadata   lipgloss.Style
	Dim        lipgloss.Style
}

var themes = map[string]Theme{
	"dark": {
		Name:       "dark",
		User:       lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Assistant:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		System:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Summary:    lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		ToolName:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		ToolParam:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		ToolOutput: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Metadata:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Dim:        lipgloss.NewStyle().Faint(true),
	},
	"light": {
		Name:       "light",
		User:       lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		Assistant:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		System:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Summary:    lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		ToolName:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		ToolParam:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		ToolOutput: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Metadata:   lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		Dim:        lipgloss.NewStyle().Faint(true),
	},
	"mono": {
		Name: "mono",
	},
}

// GetTheme returns a named theme, falling back to dark for unknown names.
func GetTheme(name string) Theme {
	if theme, ok := themes[name]; ok {
		return theme
	}
	return themes["dark"]
}

// ThemeNames lists the available themes in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetermineTheme resolves the active theme by priority: command-line flag,
// then environment variable, then the configured default.
func DetermineTheme(flagTheme string, noColor bool, configured string) string {
	if noColor {
		return "mono"
	}
	if flagTheme != "" {
		return flagTheme
	}
	if env := os.Getenv("CLAUDEVIEW_THEME"); env != "" {
		return env
	}
	if configured != "" {
		return configured
	}
	return "dark"
}
