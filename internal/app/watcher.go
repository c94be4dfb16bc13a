package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/justyntemme/stockpile/internal/debug"
	"github.com/justyntemme/stockpile/internal/fs"
)

// RecordWatcher reports changes to the metadata records under a destination,
// so a session can pick up what an external orchestrator wrote.
type RecordWatcher struct {
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	watching   map[string]bool // Currently watched paths
	recordDir  string
	notify     chan string   // Receives the directory that changed
	done       chan struct{} // Shutdown signal
	debounceMs int
}

// NewRecordWatcher watches dest and, once it exists, dest/Components.
func NewRecordWatcher(dest string, debounceMs int) (*RecordWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounceMs <= 0 {
		debounceMs = 200 // Default 200ms debounce
	}

	rw := &RecordWatcher{
		watcher:    w,
		watching:   make(map[string]bool),
		recordDir:  filepath.Join(dest, fs.RecordDir),
		notify:     make(chan string, 10),
		done:       make(chan struct{}),
		debounceMs: debounceMs,
	}

	if err := rw.watch(dest); err != nil {
		w.Close()
		return nil, err
	}
	if info, err := os.Stat(rw.recordDir); err == nil && info.IsDir() {
		if err := rw.watch(rw.recordDir); err != nil {
			w.Close()
			return nil, err
		}
	}

	go rw.run()
	return rw, nil
}

// run processes filesystem events with debouncing
func (rw *RecordWatcher) run() {
	var lastEvent time.Time
	pending := ""
	ticker := time.NewTicker(time.Duration(rw.debounceMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-rw.done:
			return

		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			// We care about creates, deletes, renames, and writes
			if !(event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Write)) {
				continue
			}

			// The record directory may appear after the first install
			if event.Name == rw.recordDir && event.Has(fsnotify.Create) {
				if err := rw.watch(rw.recordDir); err != nil {
					debug.Log(debug.FS, "cannot watch %s: %v", rw.recordDir, err)
				}
			}
			if filepath.Dir(event.Name) != rw.recordDir && event.Name != rw.recordDir {
				continue
			}
			debug.Log(debug.FS, "FSNotify event: %s on %s", event.Op, event.Name)
			lastEvent = time.Now()
			pending = rw.recordDir

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.FS, "FSNotify error: %v", err)

		case <-ticker.C:
			if pending == "" {
				continue
			}
			if time.Since(lastEvent) < time.Duration(rw.debounceMs)*time.Millisecond {
				continue
			}
			select {
			case rw.notify <- pending:
				debug.Log(debug.FS, "record change notification: %s", pending)
			default:
				// Channel full, a notification is already queued
			}
			pending = ""
		}
	}
}

func (rw *RecordWatcher) watch(path string) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.watching[path] {
		return nil // Already watching
	}
	if err := rw.watcher.Add(path); err != nil {
		return err
	}
	rw.watching[path] = true
	debug.Log(debug.FS, "Now watching directory: %s", path)
	return nil
}

// Notify returns the channel that receives change notifications
func (rw *RecordWatcher) Notify() <-chan string {
	return rw.notify
}

// Close shuts down the watcher
func (rw *RecordWatcher) Close() error {
	close(rw.done)
	return rw.watcher.Close()
}

// Watch rescans and re-syncs every time the records under the destination
// change, calling onChange with the new flags, until ctx is done. The
// selection is kept; only the installed baseline and update flags move.
func (s *Session) Watch(ctx context.Context, onChange func(SyncResult)) error {
	if s.sel == nil {
		return ErrNotLoaded
	}
	rw, err := NewRecordWatcher(s.dest, 0)
	if err != nil {
		return err
	}
	defer rw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rw.Notify():
			if err := s.Rescan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			var res SyncResult
			res.Updates, res.NeedsReinstall = s.refresh()
			if onChange != nil {
				onChange(res)
			}
		}
	}
}
