package app

import (
	"context"
	"encoding/json"
	"io"

	"github.com/justyntemme/stockpile/internal/catalog"
	"github.com/justyntemme/stockpile/internal/fs"
)

// Mode selects which operation Apply plans
type Mode int

const (
	// ModeDownload installs every checked component into a fresh destination
	ModeDownload Mode = iota
	// ModeChange installs what is checked but missing and removes what is
	// installed but unchecked
	ModeChange
	// ModeUpdate reinstalls checked components that have a newer build
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeDownload:
		return "download"
	case ModeChange:
		return "change"
	case ModeUpdate:
		return "update"
	}
	return "unknown"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Artifact is one component the orchestrator has to fetch
type Artifact struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Hash string `json:"hash,omitempty"`
	Size int64  `json:"size"`
}

// Plan is everything an orchestrator needs to carry out an operation.
// Install and Update carry artifacts; Remove carries ids only.
type Plan struct {
	Mode        Mode       `json:"mode"`
	Destination string     `json:"destination"`
	Install     []Artifact `json:"install,omitempty"`
	Update      []Artifact `json:"update,omitempty"`
	Remove      []string   `json:"remove,omitempty"`
	// Size is the displayed byte figure: the full total for a download,
	// the signed change on disk for the other modes.
	Size int64 `json:"size"`
}

// Empty reports whether the plan has nothing to do
func (p Plan) Empty() bool {
	return len(p.Install) == 0 && len(p.Update) == 0 && len(p.Remove) == 0
}

// Orchestrator carries out a plan: it transfers or deletes component files
// and, on success, writes or removes their metadata records. Long transfers
// should honor ctx.
type Orchestrator interface {
	Execute(ctx context.Context, plan Plan) error
}

// PlanWriter hands plans to an external executor by writing them as JSON
type PlanWriter struct {
	W io.Writer
}

func (pw PlanWriter) Execute(ctx context.Context, plan Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(pw.W)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// Confirmer is asked before an operation proceeds despite path warnings.
// Returning false aborts the operation.
type Confirmer interface {
	Confirm(dest string, warnings []fs.PathWarning) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(dest string, warnings []fs.PathWarning) bool

func (f ConfirmFunc) Confirm(dest string, warnings []fs.PathWarning) bool { return f(dest, warnings) }

// Plan builds the plan for mode from the current selection without changing it
func (s *Session) Plan(mode Mode) (Plan, error) {
	if s.sel == nil {
		return Plan{}, ErrNotLoaded
	}
	p := Plan{Mode: mode, Destination: s.dest}

	for _, h := range s.tree.Components() {
		n := s.tree.Node(h)
		checked := s.sel.IsChecked(h)
		installed := s.tracker.Exists(n.ID)

		switch mode {
		case ModeDownload:
			if checked {
				p.Install = append(p.Install, s.artifact(h))
			}
		case ModeChange:
			switch {
			case checked && (!installed || s.reinstall[n.ID]):
				p.Install = append(p.Install, s.artifact(h))
			case !checked && installed:
				p.Remove = append(p.Remove, n.ID)
			}
		case ModeUpdate:
			if checked && installed && s.updates[n.ID] {
				p.Update = append(p.Update, s.artifact(h))
				actual, _ := s.tracker.ActualSize(n.ID)
				p.Size += n.Component.Size - actual
			}
		}
	}

	switch mode {
	case ModeDownload:
		p.Size = catalog.TotalSelectedSize(s.sel)
	case ModeChange:
		// Installed components stand at their recorded size in Total, so
		// pending updates do not count toward a change.
		p.Size = s.sel.Total() - catalog.InstalledSize(s.tree, s.tracker)
	}
	return p, nil
}

func (s *Session) artifact(h catalog.Handle) Artifact {
	n := s.tree.Node(h)
	return Artifact{
		ID:   n.ID,
		URL:  s.tree.Artifact(h),
		Hash: n.Component.Hash,
		Size: n.Component.Size,
	}
}
