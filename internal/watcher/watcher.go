package watcher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"claudeview/internal/filestate"
	"claudeview/internal/model"
)

// Handler receives each newly appended entry exactly once.
type Handler func(raw model.RawEntry)

// Watcher tails one session file and hands new entries to a handler. The
// loop is cancelled through its context; the watcher itself holds no
// ordering or display logic.
type Watcher interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type fileWatcher struct {
	path     string
	interval time.Duration
	handler  Handler
	states   filestate.Manager

	offset    int64
	lastSaved int64
	seen      map[string]struct{}
}

// NewFileWatcher builds a watcher for one session file. A non-nil state
// manager makes the watch resumable: the emitted offset is persisted and
// restored on the next run, so restarting does not replay old entries.
func NewFileWatcher(path string, interval time.Duration, handler Handler, states filestate.Manager) Watcher {
	return &fileWatcher{
		path:     path,
		interval: interval,
		handler:  handler,
		states:   states,
		seen:     make(map[string]struct{}),
	}
}

// Run blocks until the context is cancelled. File system events trigger a
// drain immediately; a poll ticker covers editors and file systems that do
// not emit reliable events.
func (w *fileWatcher) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create file system watcher, falling back to polling only")
	} else {
		defer notifier.Close()
		if err := notifier.Add(filepath.Dir(w.path)); err != nil {
			log.Warn().Err(err).Str("dir", filepath.Dir(w.path)).Msg("Failed to watch session directory, falling back to polling only")
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Str("file", w.path).Msg("Watching session file")

	w.restoreOffset()

	// Emit what is already there before waiting for changes.
	w.drain()

	for {
		var events chan fsnotify.Event
		var errs chan error
		if notifier != nil {
			events = notifier.Events
			errs = notifier.Errors
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Watcher stopping due to context cancellation")
			return
		case event := <-events:
			if event.Name == w.path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.drain()
			}
		case err := <-errs:
			log.Warn().Err(err).Msg("File system watcher error")
		case <-ticker.C:
			w.drain()
		}
	}
}

// drain reads everything past the current offset and emits each new entry.
// Read errors are retried with exponential backoff; a file that stays
// unreadable only skips this round.
func (w *fileWatcher) drain() {
	var file *os.File
	open := func() error {
		f, err := os.Open(w.path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", w.path, err)
		}
		file = f
		return nil
	}

	openBackoff := backoff.NewExponentialBackOff()
	openBackoff.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(open, openBackoff); err != nil {
		log.Warn().Err(err).Msg("Session file unreadable, will retry next round")
		return
	}
	defer file.Close()

	// A truncated file means the session was rewritten; start over.
	if info, err := file.Stat(); err == nil && info.Size() < w.offset {
		log.Debug().Str("file", w.path).Msg("Session file shrank, resetting offset")
		w.offset = 0
		w.seen = make(map[string]struct{})
	}

	if _, err := file.Seek(w.offset, io.SeekStart); err != nil {
		log.Warn().Err(err).Msg("Failed to seek session file")
		return
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// An unterminated trailing line is still being written; leave
			// the offset before it so the next round picks it up whole.
			break
		}
		w.offset += int64(len(line))

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var raw model.RawEntry
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			log.Debug().Err(err).Msg("Skipping undecodable line while watching")
			continue
		}

		key := entryKey(raw, line)
		if _, ok := w.seen[key]; ok {
			continue
		}
		w.seen[key] = struct{}{}

		w.handler(raw)
	}

	w.persistOffset()
}

// restoreOffset resumes from the offset a previous run saved. A broken state
// file only costs the resume, never the watch itself.
func (w *fileWatcher) restoreOffset() {
	if w.states == nil {
		return
	}
	offsets, err := w.states.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load watch state, starting from the top")
		return
	}
	if saved, ok := offsets[w.path]; ok {
		log.Debug().Str("file", w.path).Int64("offset", saved).Msg("Resuming watch from saved offset")
		w.offset = saved
		w.lastSaved = saved
	}
}

func (w *fileWatcher) persistOffset() {
	if w.states == nil || w.offset == w.lastSaved {
		return
	}
	offsets, err := w.states.Load()
	if err != nil {
		offsets = make(filestate.Offsets)
	}
	offsets[w.path] = w.offset
	if err := w.states.Save(offsets); err != nil {
		log.Warn().Err(err).Msg("Failed to save watch state")
		return
	}
	w.lastSaved = w.offset
}

// entryKey dedupes on uuid when present, the raw line otherwise.
func entryKey(raw model.RawEntry, line string) string {
	if id, ok := raw["uuid"].(string); ok && id != "" {
		return id
	}
	return line
}
