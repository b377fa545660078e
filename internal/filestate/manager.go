package filestate

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Offsets maps a session file path to the byte offset already emitted. The
// watcher uses it to resume a watch where the previous run stopped.
type Offsets map[string]int64

type Manager interface {
	Load() (Offsets, error)
	Save(offsets Offsets) error
	Path() string
}

type fileManager struct {
	filePath string
	mu       sync.Mutex
}

func NewManager(filePath string) Manager {
	return &fileManager{filePath: filePath}
}

// Load reads the saved offsets. A missing or empty state file means a fresh
// start, not an error.
func (m *fileManager) Load() (Offsets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("file", m.filePath).Msg("No watch state file, starting fresh")
			return make(Offsets), nil
		}
		return nil, fmt.Errorf("failed to read watch state %s: %w", m.filePath, err)
	}
	if len(data) == 0 {
		return make(Offsets), nil
	}

	var offsets Offsets
	if err := json.Unmarshal(data, &offsets); err != nil {
		return nil, fmt.Errorf("failed to parse watch state %s: %w", m.filePath, err)
	}

	log.Debug().Str("file", m.filePath).Int("sessions_tracked", len(offsets)).Msg("Loaded watch state")
	return offsets, nil
}

// Save writes the offsets atomically through a temp file rename, so a crash
// mid-write never corrupts the state.
func (m *fileManager) Save(offsets Offsets) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(offsets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal watch state: %w", err)
	}

	tempPath := m.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write watch state %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, m.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace watch state %s: %w", m.filePath, err)
	}

	return nil
}

func (m *fileManager) Path() string {
	return m.filePath
}
