package fs

import (
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/justyntemme/stockpile/internal/debug"
)

// SweepFailure is one entry a sweep could not remove.
type SweepFailure struct {
	Path string
	Err  error
}

// SweepResult summarizes a best-effort removal.
type SweepResult struct {
	Removed   int
	Failed    []SweepFailure
	Cancelled bool
}

type sweepEntry struct {
	path  string
	depth int
	isDir bool
}

// Sweep deletes everything under root, then root itself. Entries that cannot
// be removed (locked, vanished, permission denied) are recorded and skipped;
// the sweep always runs to the end unless ctx is cancelled. onProgress, if
// set, is called after each entry with the number handled so far and the total.
func Sweep(ctx context.Context, root string, onProgress func(done, total int)) SweepResult {
	var res SweepResult
	var entries []sweepEntry
	var mu sync.Mutex

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, root, func(fullPath string, d iofs.DirEntry, err error) error {
		if err != nil {
			debug.Log(debug.FS_WALK, "sweep: walk error at %q: %v", fullPath, err)
			mu.Lock()
			res.Failed = append(res.Failed, SweepFailure{Path: fullPath, Err: err})
			mu.Unlock()
			return nil // Skip errors, continue walking
		}
		if fullPath == root {
			return nil
		}
		mu.Lock()
		entries = append(entries, sweepEntry{
			path:  fullPath,
			depth: fastwalk.DirEntryDepth(d),
			isDir: d.IsDir(),
		})
		mu.Unlock()
		return nil
	})
	if err != nil {
		debug.Log(debug.FS, "sweep: walk of %q failed: %v", root, err)
		res.Failed = append(res.Failed, SweepFailure{Path: root, Err: err})
		return res
	}

	// Deepest first so directories are empty by the time we reach them.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].depth != entries[j].depth {
			return entries[i].depth > entries[j].depth
		}
		return entries[i].path < entries[j].path
	})

	total := len(entries)
	for i, e := range entries {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res
		}
		if err := os.Remove(e.path); err != nil {
			debug.Log(debug.FS_WALK, "sweep: cannot remove %q: %v", e.path, err)
			res.Failed = append(res.Failed, SweepFailure{Path: e.path, Err: err})
		} else {
			res.Removed++
		}
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	if err := os.Remove(root); err != nil {
		res.Failed = append(res.Failed, SweepFailure{Path: root, Err: err})
	}

	debug.Log(debug.FS, "sweep %q: removed=%d failed=%d", root, res.Removed, len(res.Failed))
	return res
}

// RemoveFiles deletes each path, skipping failures. Missing files count as
// neither removed nor failed.
func RemoveFiles(paths []string) SweepResult {
	var res SweepResult
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		err := os.Remove(filepath.Clean(p))
		switch {
		case err == nil:
			res.Removed++
		case os.IsNotExist(err):
		default:
			res.Failed = append(res.Failed, SweepFailure{Path: p, Err: err})
		}
	}
	return res
}
