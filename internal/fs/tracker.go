package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/justyntemme/stockpile/internal/debug"
)

// Common file permission modes
const (
	DirPermission  = 0o755
	FilePermission = 0o644
)

// Tracker knows which components are installed under one destination root.
// It is built by Scan and never changes afterwards; rescan to pick up changes.
type Tracker struct {
	root    string
	records map[string]Record
}

// Scan enumerates the metadata records under root. A destination without a
// record directory simply has nothing installed. Entries that cannot be read
// are kept as broken records rather than failing the scan.
func Scan(root string) (*Tracker, error) {
	t := &Tracker{root: root, records: make(map[string]Record)}
	dir := filepath.Join(root, RecordDir)

	info, err := os.Stat(dir)
	if errors.Is(err, iofs.ErrNotExist) {
		debug.Log(debug.FS, "scan: no record directory at %q", dir)
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &PathError{Path: dir, Reason: "record location is not a directory"}
	}

	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}

	err = fastwalk.Walk(conf, dir, func(fullPath string, d iofs.DirEntry, err error) error {
		if err != nil {
			debug.Log(debug.FS_WALK, "scan: walk error at %q: %v", fullPath, err)
			return nil // Skip errors, continue walking
		}
		if fullPath == dir {
			return nil
		}
		// Records live directly in the record directory
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		name := d.Name()
		if !strings.HasSuffix(name, recordExt) || !d.Type().IsRegular() {
			debug.Log(debug.FS_WALK, "scan: ignoring %q", fullPath)
			return nil
		}

		id := strings.TrimSuffix(name, recordExt)
		rec := ReadRecord(id, fullPath)
		if rec.Err != nil {
			debug.Log(debug.FS, "scan: %v", rec.Err)
		}

		mu.Lock()
		t.records[id] = rec
		mu.Unlock()
		return nil
	})
	if err != nil {
		debug.Log(debug.FS, "scan: walk failed: %v", err)
		return nil, err
	}

	debug.Log(debug.FS, "scan: %d records under %q", len(t.records), root)
	return t, nil
}

// Root returns the scanned destination root.
func (t *Tracker) Root() string { return t.root }

// Exists reports whether a record for id was found, readable or not.
func (t *Tracker) Exists(id string) bool {
	_, ok := t.records[id]
	return ok
}

// ActualSize returns the byte count from id's record. A missing or broken
// record yields *MissingMetadataError.
func (t *Tracker) ActualSize(id string) (int64, error) {
	rec, ok := t.records[id]
	if !ok {
		return 0, &MissingMetadataError{ID: id, Path: RecordPath(t.root, id), Err: iofs.ErrNotExist}
	}
	if rec.Err != nil {
		return 0, rec.Err
	}
	return rec.Size, nil
}

// Record returns the raw record for id.
func (t *Tracker) Record(id string) (Record, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Installed returns the ids of every record found, sorted.
func (t *Tracker) Installed() []string {
	ids := make([]string, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Broken returns the ids whose records could not be parsed, sorted.
func (t *Tracker) Broken() []string {
	var ids []string
	for id, rec := range t.records {
		if rec.Err != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
