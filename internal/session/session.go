package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"claudeview/internal/model"
)

const (
	bytesPerMB     = 1024 * 1024
	scanBufferSize = 4 * 1024 * 1024
)

// projectRootMarkers identify a project root during upward discovery.
var projectRootMarkers = []string{".git", ".claude", "go.mod", "package.json", "pyproject.toml"}

// File is one discovered session file, newest first in listings.
type File struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Finder locates and reads session files for a project.
type Finder interface {
	SessionDir(projectPath string) (string, error)
	ListSessions(projectPath string) ([]File, error)
	ListProjects() ([]string, error)
	ReadSession(path string) ([]model.RawEntry, int, error)
}

type finder struct {
	projectsDir string // relative to the home directory
	maxFileSize int64
}

func NewFinder(projectsDir string, maxFileSizeMB int) Finder {
	return &finder{
		projectsDir: projectsDir,
		maxFileSize: int64(maxFileSizeMB) * bytesPerMB,
	}
}

// DirName converts a file system path to the session directory naming
// convention: leading dash, slashes and underscores become dashes, hidden
// components lose the dot and gain an extra dash.
func DirName(projectPath string) string {
	parts := strings.Split(filepath.ToSlash(projectPath), "/")
	converted := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "_", "-")
		if strings.HasPrefix(part, ".") {
			part = "-" + part[1:]
		}
		converted = append(converted, part)
	}
	return "-" + strings.Join(converted, "-")
}

// FindProjectRoot walks upward from start looking for a root marker. Without
// a marker the start path itself is returned.
func FindProjectRoot(start string) string {
	current, err := filepath.Abs(start)
	if err != nil {
		return start
	}

	for dir := current; ; dir = filepath.Dir(dir) {
		for _, marker := range projectRootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		if filepath.Dir(dir) == dir {
			return current
		}
	}
}

func (f *finder) SessionDir(projectPath string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, f.projectsDir, DirName(projectPath)), nil
}

// ListSessions returns the project's session files sorted newest first.
// Oversized files are skipped with a warning rather than loaded.
func (f *finder) ListSessions(projectPath string) ([]File, error) {
	dir, err := f.SessionDir(projectPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no sessions found for %s (looked in %s)", projectPath, dir)
		}
		return nil, fmt.Errorf("failed to read session directory %s: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to stat session file, skipping")
			continue
		}
		if info.Size() > f.maxFileSize {
			log.Warn().Str("file", entry.Name()).Int64("size", info.Size()).Msg("Session file exceeds size limit, skipping")
			continue
		}
		files = append(files, File{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// ListProjects returns the name of every project directory that holds at
// least one session file.
func (f *finder) ListProjects() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	root := filepath.Join(home, f.projectsDir)

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read projects directory %s: %w", root, err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// ReadSession decodes a session file into raw entries. Undecodable lines are
// reported as a count and skipped; they never reach the normalizer.
func (f *finder) ReadSession(path string) ([]model.RawEntry, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open session file %s: %w", path, err)
	}
	defer file.Close()

	var entries []model.RawEntry
	parseErrors := 0

	scanner := bufio.NewScanner(file)
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
			parseErrors++
			log.Debug().Str("file", path).Int("line", lineNum).Err(err).Msg("Skipping undecodable session line")
			continue
		}
		entries = append(entries, raw)
	}
	if err := scanner.Err(); err != nil {
		return entries, parseErrors, fmt.Errorf("failed to scan session file %s: %w", path, err)
	}

	log.Debug().Str("file", path).Int("entries", len(entries)).Int("parse_errors", parseErrors).Msg("Read session file")
	return entries, parseErrors, nil
}

// FormatFileSize renders a size for listings.
func FormatFileSize(size int64) string {
	switch {
	case size >= bytesPerMB:
		return fmt.Sprintf("%.1f MB", float64(size)/bytesPerMB)
	case size >= 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
