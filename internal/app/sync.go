package app

import (
	"github.com/justyntemme/stockpile/internal/debug"
)

// SyncResult is what startup reconciliation found
type SyncResult struct {
	// Updates lists installed components whose recorded size differs from
	// the size the manifest now declares.
	Updates []string
	// NeedsReinstall lists installed components whose record is missing or
	// unreadable. They are selected so the next change reinstalls them.
	NeedsReinstall []string
	// AutoSelected lists the auto-download ids that were selected.
	AutoSelected []string
	// UnknownAuto lists auto-download ids the catalog does not have.
	UnknownAuto []string
	// RunImmediately asks the caller to start an operation without
	// waiting for the user.
	RunImmediately bool
	// ExitAfter asks the caller to end the session once that operation
	// finishes.
	ExitAfter bool
	// OpenUpdates asks the caller to show the updates view first.
	OpenUpdates bool
}

// Sync reconciles the manifest with what is installed. It runs once after
// Load, marks installed components checked, flags updates and consumes the
// auto-download list. It only touches in-memory state.
func (s *Session) Sync() (SyncResult, error) {
	if s.sel == nil {
		return SyncResult{}, ErrNotLoaded
	}

	var res SyncResult
	res.Updates, res.NeedsReinstall = s.refresh()

	// Installed components start checked, including those with broken
	// records, so the next change keeps or reinstalls them.
	for _, id := range s.tracker.Installed() {
		if h, ok := s.tree.Lookup(id); ok && s.tree.Node(h).IsComponent() {
			s.check(id)
		}
	}

	for _, id := range s.autoDownload {
		h, ok := s.tree.Lookup(id)
		if !ok {
			debug.Log(debug.SYNC, "auto-download id %q not in catalog", id)
			res.UnknownAuto = append(res.UnknownAuto, id)
			continue
		}
		s.check(s.tree.Node(h).ID)
		res.AutoSelected = append(res.AutoSelected, id)
	}
	// Consumed once
	s.autoDownload = nil

	res.RunImmediately = len(res.AutoSelected) > 0
	res.ExitAfter = res.RunImmediately
	res.OpenUpdates = s.openUpdates || (s.cfg.Behavior.OpenUpdatesWhenAvailable && len(res.Updates) > 0)

	s.metrics.SelectedBytes.Set(float64(s.sel.Total()))
	debug.Log(debug.SYNC, "sync: %d updates, %d reinstall, %d auto", len(res.Updates), len(res.NeedsReinstall), len(res.AutoSelected))
	return res, nil
}

// refresh recomputes the update and reinstall flags from the current tracker
// without changing the selection.
func (s *Session) refresh() (updates, reinstall []string) {
	s.updates = make(map[string]bool)
	s.reinstall = make(map[string]bool)

	for _, h := range s.tree.Components() {
		n := s.tree.Node(h)
		if !s.tracker.Exists(n.ID) {
			continue
		}
		actual, err := s.tracker.ActualSize(n.ID)
		if err != nil {
			debug.Log(debug.SYNC, "%s needs reinstall: %v", n.ID, err)
			s.reinstall[n.ID] = true
			reinstall = append(reinstall, n.ID)
			continue
		}
		if actual != n.Component.Size {
			debug.Log(debug.SYNC, "%s update available: %d -> %d", n.ID, actual, n.Component.Size)
			s.updates[n.ID] = true
			updates = append(updates, n.ID)
		}
	}

	s.metrics.Updates.Set(float64(len(updates)))
	s.metrics.Reinstall.Set(float64(len(reinstall)))
	return updates, reinstall
}

// check selects id. Checking is never vetoed, so a failure here means the id
// is gone from the catalog.
func (s *Session) check(id string) {
	if err := s.sel.ToggleID(id, true); err != nil {
		debug.Log(debug.SYNC, "could not select %q: %v", id, err)
	}
}
