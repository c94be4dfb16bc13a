package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/justyntemme/stockpile/internal/catalog"
	"github.com/justyntemme/stockpile/internal/debug"
	"github.com/justyntemme/stockpile/internal/fs"
)

var (
	// ErrDeclined is returned when path warnings were not confirmed
	ErrDeclined = errors.New("operation declined")
	// ErrNothingToDo is returned when the plan is empty
	ErrNothingToDo = errors.New("nothing to do")
)

// Apply checks the destination and selection, plans the operation for mode
// and hands it to orch. Path warnings go through confirm; a nil confirm
// declines them. Nothing in the session changes unless orch succeeds, after
// which the destination is rescanned.
func (s *Session) Apply(ctx context.Context, mode Mode, confirm Confirmer, orch Orchestrator) (Plan, error) {
	if s.sel == nil {
		return Plan{}, ErrNotLoaded
	}

	plan, err := s.prepare(mode, confirm)
	if err != nil {
		return plan, err
	}

	debug.Log(debug.APP, "%s: %d install, %d update, %d remove", mode, len(plan.Install), len(plan.Update), len(plan.Remove))
	if err := orch.Execute(ctx, plan); err != nil {
		s.metrics.operation(mode, resultFailed)
		return plan, fmt.Errorf("%s: %w", mode, err)
	}
	s.metrics.operation(mode, resultOK)
	s.rememberDestination()

	if err := s.Rescan(ctx); err != nil {
		return plan, err
	}
	s.refresh()
	return plan, nil
}

func (s *Session) prepare(mode Mode, confirm Confirmer) (Plan, error) {
	limit := s.cfg.Install.PathWarnLength
	res, err := fs.VerifyWithLimit(s.dest, true, limit)
	if err != nil {
		s.metrics.operation(mode, resultRefused)
		return Plan{}, err
	}

	// An existing install always has entries, so the non-empty warning
	// only matters for a fresh download.
	warnings := res.Warnings
	if mode != ModeDownload {
		warnings = without(warnings, fs.WarnNonEmpty)
	}
	if len(warnings) > 0 && (confirm == nil || !confirm.Confirm(res.Path, warnings)) {
		s.metrics.operation(mode, resultDeclined)
		return Plan{}, ErrDeclined
	}

	check := func(dest string) error {
		_, err := fs.VerifyWithLimit(dest, true, limit)
		return err
	}
	if err := catalog.CheckDependencies(s.sel, s.dest, check); err != nil {
		s.metrics.operation(mode, resultRefused)
		return Plan{}, err
	}

	plan, err := s.Plan(mode)
	if err != nil {
		return plan, err
	}
	if plan.Empty() {
		s.metrics.operation(mode, resultEmpty)
		return plan, ErrNothingToDo
	}
	return plan, nil
}

func without(ws []fs.PathWarning, drop fs.PathWarning) []fs.PathWarning {
	var out []fs.PathWarning
	for _, w := range ws {
		if w != drop {
			out = append(out, w)
		}
	}
	return out
}
