package app

import (
	"context"
	"log"

	"github.com/justyntemme/stockpile/internal/debug"
	"github.com/justyntemme/stockpile/internal/fs"
)

// Uninstall removes everything under the destination and then the configured
// shortcut files. It is best-effort: entries that cannot be removed are
// reported in the result and skipped. Cancelling ctx stops the sweep at the
// next entry.
func (s *Session) Uninstall(ctx context.Context, onProgress func(fs.Progress)) (fs.SweepResult, error) {
	target, err := fs.Verify(s.dest, true)
	if err != nil {
		return fs.SweepResult{}, err
	}

	var res fs.SweepResult
	if target.Exists {
		resp, err := s.call(ctx, fs.Request{Op: fs.SweepDir, Path: target.Path}, onProgress)
		if err != nil {
			return fs.SweepResult{}, err
		}
		res = resp.Sweep
	}

	if !res.Cancelled {
		shortcuts := fs.RemoveFiles(s.cfg.Install.Shortcuts)
		res.Removed += shortcuts.Removed
		res.Failed = append(res.Failed, shortcuts.Failed...)
	}

	for _, f := range res.Failed {
		log.Printf("Uninstall: could not remove %s: %v", f.Path, f.Err)
	}
	s.metrics.SweepFailures.Add(float64(len(res.Failed)))
	debug.Log(debug.APP, "uninstall removed %d, failed %d, cancelled %v", res.Removed, len(res.Failed), res.Cancelled)

	if s.tree != nil {
		// Rescan with a fresh context: the sweep may have been cancelled
		// but the baseline must still reflect what is left.
		if err := s.Rescan(context.WithoutCancel(ctx)); err != nil {
			return res, err
		}
		s.refresh()
	}
	return res, nil
}
