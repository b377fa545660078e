package diagnostics

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
)

// Report is the aggregate outcome of one diagnostics run. It is rebuilt on
// every run and never persisted.
type Report struct {
	VersionCounts      map[string]int
	EntryTypeCounts    map[string]int
	FieldPatternCounts map[string]int
	UnknownFields      map[string]int
	ContentShapes      map[string]map[string]int

	FallbackCount     int
	ParseFailureCount int
	EntriesAttempted  int

	// SuccessRate is entries normalized without fallback over entries
	// attempted. Lines that never decoded are excluded from the denominator.
	SuccessRate float64
}

// FileStats summarizes a single analyzed file.
type FileStats struct {
	Path        string
	Entries     int
	ParseErrors int
}

// Render writes the human-readable compatibility report.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintln(w, "=== Log Format Compatibility Report ===")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Version distribution:")
	versionTable := tablewriter.NewTable(w)
	versionTable.Header("Version", "Entries", "Field Patterns")
	for _, version := range sortedKeys(r.VersionCounts) {
		versionTable.Append(version, fmt.Sprintf("%d", r.VersionCounts[version]), fmt.Sprintf("%d", r.FieldPatternCounts[version]))
	}
	versionTable.Render()
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Entry types:")
	typeTable := tablewriter.NewTable(w)
	typeTable.Header("Type", "Entries")
	for _, entryType := range sortedKeys(r.EntryTypeCounts) {
		typeTable.Append(entryType, fmt.Sprintf("%d", r.EntryTypeCounts[entryType]))
	}
	typeTable.Render()
	fmt.Fprintln(w)

	if len(r.UnknownFields) > 0 {
		fmt.Fprintln(w, "Unknown fields:")
		unknownTable := tablewriter.NewTable(w)
		unknownTable.Header("Field", "Occurrences")
		for _, field := range sortedKeys(r.UnknownFields) {
			unknownTable.Append(field, fmt.Sprintf("%d", r.UnknownFields[field]))
		}
		unknownTable.Render()
		fmt.Fprintln(w)
	}

	if len(r.ContentShapes) > 0 {
		fmt.Fprintln(w, "Content structure variations:")
		for _, version := range sortedKeysNested(r.ContentShapes) {
			fmt.Fprintf(w, "  %s:\n", version)
			for _, shape := range sortedKeys(r.ContentShapes[version]) {
				fmt.Fprintf(w, "    - %s (%d)\n", shape, r.ContentShapes[version][shape])
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Entries attempted:    %d\n", r.EntriesAttempted)
	fmt.Fprintf(w, "Extraction fallbacks: %d\n", r.FallbackCount)
	fmt.Fprintf(w, "Parse failures:       %d\n", r.ParseFailureCount)
	fmt.Fprintf(w, "Success rate:         %.1f%%\n", r.SuccessRate*100)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysNested(m map[string]map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
