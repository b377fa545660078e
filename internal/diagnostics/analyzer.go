package diagnostics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"claudeview/internal/model"
	"claudeview/internal/parser"
)

// scanBufferSize accommodates single JSONL lines carrying large tool
// payloads.
const scanBufferSize = 4 * 1024 * 1024

// Analyzer batch-runs the normalization pipeline over a corpus of raw
// entries purely for reporting. It never alters registry or rule state and
// its counters live only for the run.
type Analyzer struct {
	normalizer parser.Normalizer
	verbose    bool

	versions      map[string]int
	entryTypes    map[string]int
	fieldPatterns map[string]map[string]struct{}
	unknownFields map[string]int
	contentShapes map[string]map[string]int

	attempted int
	clean     int
	fallbacks int
	failures  int
}

func NewAnalyzer(normalizer parser.Normalizer, verbose bool) *Analyzer {
	return &Analyzer{
		normalizer:    normalizer,
		verbose:       verbose,
		versions:      make(map[string]int),
		entryTypes:    make(map[string]int),
		fieldPatterns: make(map[string]map[string]struct{}),
		unknownFields: make(map[string]int),
		contentShapes: make(map[string]map[string]int),
	}
}

// AnalyzeFile scans one session file line by line. Lines that fail to decode
// never reach the pipeline; they are counted as parse failures and skipped,
// so the scan always completes.
func (a *Analyzer) AnalyzeFile(path string) (*FileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	stats := &FileStats{Path: path}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw model.RawEntry
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			a.failures++
			stats.ParseErrors++
			log.Debug().Str("file", path).Int("line", lineNum).Err(err).Msg("Skipping undecodable line")
			continue
		}

		a.AnalyzeEntry(raw)
		stats.Entries++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	return stats, nil
}

// AnalyzeEntry feeds a single decoded entry through the pipeline and records
// what came out. A panicking entry is caught and counted as a parse failure;
// it never stops the scan.
func (a *Analyzer) AnalyzeEntry(raw model.RawEntry) {
	a.attempted++

	defer func() {
		if r := recover(); r != nil {
			a.failures++
			log.Warn().Interface("panic", r).Msg("Entry triggered a panic during normalization")
		}
	}()

	entry := a.normalizer.Normalize(raw)

	version := entry.Version
	if version == "" {
		version = "no_version"
	}
	a.versions[version]++

	entryType := entry.Type
	if entryType == "" {
		entryType = "unknown"
	}
	a.entryTypes[entryType]++

	if a.fieldPatterns[version] == nil {
		a.fieldPatterns[version] = make(map[string]struct{})
	}
	signature := fieldSignature(raw)
	if _, seen := a.fieldPatterns[version][signature]; !seen && a.verbose {
		log.Info().Str("version", version).Str("fields", signature).Msg("New field pattern")
	}
	a.fieldPatterns[version][signature] = struct{}{}

	for key := range entry.Unknown {
		a.unknownFields[strings.TrimPrefix(key, model.UnknownFieldPrefix)]++
	}

	if a.contentShapes[version] == nil {
		a.contentShapes[version] = make(map[string]int)
	}
	a.contentShapes[version][contentShape(raw)]++

	if entry.Fallback {
		a.fallbacks++
	} else {
		a.clean++
	}
}

// AnalyzeEntries processes a pre-decoded corpus, entries independently.
func (a *Analyzer) AnalyzeEntries(corpus []model.RawEntry) {
	for _, raw := range corpus {
		a.AnalyzeEntry(raw)
	}
}

// RecordParseFailure accounts for an input line that failed to decode before
// reaching the pipeline.
func (a *Analyzer) RecordParseFailure() {
	a.failures++
}

// Report snapshots the accumulated statistics.
func (a *Analyzer) Report() *Report {
	report := &Report{
		VersionCounts:      copyCounts(a.versions),
		EntryTypeCounts:    copyCounts(a.entryTypes),
		UnknownFields:      copyCounts(a.unknownFields),
		FieldPatternCounts: make(map[string]int, len(a.fieldPatterns)),
		ContentShapes:      make(map[string]map[string]int, len(a.contentShapes)),
		FallbackCount:      a.fallbacks,
		ParseFailureCount:  a.failures,
		EntriesAttempted:   a.attempted,
	}
	for version, patterns := range a.fieldPatterns {
		report.FieldPatternCounts[version] = len(patterns)
	}
	for version, shapes := range a.contentShapes {
		report.ContentShapes[version] = copyCounts(shapes)
	}
	if a.attempted > 0 {
		report.SuccessRate = float64(a.clean) / float64(a.attempted)
	}
	return report
}

// fieldSignature is the sorted key set of an entry, used to count distinct
// field patterns per version.
func fieldSignature(raw model.RawEntry) string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func contentShape(raw model.RawEntry) string {
	value, ok := raw["message"]
	if !ok {
		if value, ok = raw["content"]; !ok {
			return "none"
		}
	}
	switch v := value.(type) {
	case nil:
		return "none"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return "object[" + strings.Join(keys, ",") + "]"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
