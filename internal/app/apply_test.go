package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/justyntemme/stockpile/internal/catalog"
	"github.com/justyntemme/stockpile/internal/fs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// recordingOrchestrator writes and removes metadata records the way a real
// executor would after transferring files.
type recordingOrchestrator struct {
	calls []Plan
	err   error
}

func (r *recordingOrchestrator) Execute(ctx context.Context, plan Plan) error {
	r.calls = append(r.calls, plan)
	if r.err != nil {
		return r.err
	}
	for _, a := range append(plan.Install, plan.Update...) {
		if err := fs.WriteRecord(plan.Destination, a.ID, a.Size, ""); err != nil {
			return err
		}
	}
	for _, id := range plan.Remove {
		if err := fs.RemoveRecord(plan.Destination, id); err != nil {
			return err
		}
	}
	return nil
}

func accept(string, []fs.PathWarning) bool { return true }

func TestApply_Download(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t, Options{})
	if err := s.Select("Extra-Pack", true); err != nil {
		t.Fatal(err)
	}

	orch := &recordingOrchestrator{}
	plan, err := s.Apply(context.Background(), ModeDownload, nil, orch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(orch.calls) != 1 {
		t.Fatalf("expected one Execute call, got %d", len(orch.calls))
	}
	var ids []string
	for _, a := range plan.Install {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, []string{"Core-Engine", "Extra-Pack"}) {
		t.Errorf("expected install of Core-Engine and Extra-Pack, got %v", ids)
	}
	if plan.Size != 700000000 {
		t.Errorf("expected size 700000000, got %d", plan.Size)
	}
	if !s.Tracker().Exists("Extra-Pack") {
		t.Error("expected rescan to see the new record")
	}
	if got := testutil.ToFloat64(s.Metrics().Operations.WithLabelValues("download", resultOK)); got != 1 {
		t.Errorf("expected one successful download, got %v", got)
	}
}

func TestApply_DependencyRefusedLeavesSelection(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t, Options{})
	if err := s.Select("Addon", true); err != nil {
		t.Fatal(err)
	}
	before := s.Selection().Snapshot()

	orch := &recordingOrchestrator{}
	_, err := s.Apply(context.Background(), ModeDownload, ConfirmFunc(accept), orch)

	var de *catalog.DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DependencyError, got %v", err)
	}
	if len(de.Violations) != 1 || de.Violations[0].Missing != "Extra-Pack" {
		t.Errorf("expected Addon to miss Extra-Pack, got %v", de.Violations)
	}
	if len(orch.calls) != 0 {
		t.Error("orchestrator must not run after a refused check")
	}
	if after := s.Selection().Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("selection changed: before %+v, after %+v", before, after)
	}
	if got := testutil.ToFloat64(s.Metrics().Operations.WithLabelValues("download", resultRefused)); got != 1 {
		t.Errorf("expected one refused download, got %v", got)
	}
}

func TestApply_PathWarningsNeedConfirmation(t *testing.T) {
	env := newTestEnv(t)
	if err := os.MkdirAll(env.dest, fs.DirPermission); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.dest, "stray.txt"), []byte("x"), fs.FilePermission); err != nil {
		t.Fatal(err)
	}
	s := env.session(t, Options{})
	orch := &recordingOrchestrator{}

	var seen []fs.PathWarning
	decline := ConfirmFunc(func(dest string, ws []fs.PathWarning) bool {
		seen = ws
		return false
	})
	if _, err := s.Apply(context.Background(), ModeDownload, decline, orch); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if !reflect.DeepEqual(seen, []fs.PathWarning{fs.WarnNonEmpty}) {
		t.Errorf("expected non-empty warning, got %v", seen)
	}
	if _, err := s.Apply(context.Background(), ModeDownload, nil, orch); !errors.Is(err, ErrDeclined) {
		t.Errorf("expected nil confirmer to decline, got %v", err)
	}
	if len(orch.calls) != 0 {
		t.Fatal("orchestrator must not run before confirmation")
	}

	if _, err := s.Apply(context.Background(), ModeDownload, ConfirmFunc(accept), orch); err != nil {
		t.Fatalf("expected confirmed apply to succeed, got %v", err)
	}
	if len(orch.calls) != 1 {
		t.Errorf("expected one Execute call, got %d", len(orch.calls))
	}
}

func TestApply_InvalidPath(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Install.Destination = "relative/dir"
	s := env.session(t, Options{})

	var pe *fs.PathError
	if _, err := s.Apply(context.Background(), ModeDownload, ConfirmFunc(accept), &recordingOrchestrator{}); !errors.As(err, &pe) {
		t.Errorf("expected *PathError, got %v", err)
	}
}

func TestApply_ChangeRemovesUnchecked(t *testing.T) {
	env := newTestEnv(t)
	env.install(t, "Core-Engine", 500000000)
	env.install(t, "Extra-Pack", 200000000)
	s := env.session(t, Options{})
	if _, err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := s.Select("Extra-Pack", false); err != nil {
		t.Fatal(err)
	}

	orch := &recordingOrchestrator{}
	plan, err := s.Apply(context.Background(), ModeChange, nil, orch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !reflect.DeepEqual(plan.Remove, []string{"Extra-Pack"}) || len(plan.Install) != 0 {
		t.Errorf("expected only Extra-Pack removed, got %+v", plan)
	}
	if plan.Size != -200000000 {
		t.Errorf("expected delta -200000000, got %d", plan.Size)
	}
	if s.Tracker().Exists("Extra-Pack") {
		t.Error("expected record gone after rescan")
	}

	if _, err := s.Apply(context.Background(), ModeChange, nil, orch); !errors.Is(err, ErrNothingToDo) {
		t.Errorf("expected ErrNothingToDo on a second run, got %v", err)
	}
}

func TestApply_ChangeSizeIgnoresPendingUpdates(t *testing.T) {
	env := newTestEnv(t)
	env.install(t, "Core-Engine", 500000000)
	env.install(t, "Extra-Pack", 180000000)
	s := env.session(t, Options{})
	if _, err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := s.Select("Addon", true); err != nil {
		t.Fatal(err)
	}

	plan, err := s.Plan(ModeChange)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Install) != 1 || plan.Install[0].ID != "Addon" || len(plan.Update) != 0 {
		t.Fatalf("expected only Addon installed, got %+v", plan)
	}
	if plan.Size != 1000 {
		t.Errorf("expected change size 1000, got %d", plan.Size)
	}
	// The full delta still counts the pending Extra-Pack update
	if got := catalog.SizeDelta(s.Selection(), s.Tracker()); got != 20001000 {
		t.Errorf("expected size delta 20001000, got %d", got)
	}
}

func TestApply_Update(t *testing.T) {
	env := newTestEnv(t)
	env.install(t, "Core-Engine", 500000000)
	env.install(t, "Extra-Pack", 180000000)
	s := env.session(t, Options{})
	if _, err := s.Sync(); err != nil {
		t.Fatal(err)
	}

	orch := &recordingOrchestrator{}
	plan, err := s.Apply(context.Background(), ModeUpdate, nil, orch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(plan.Update) != 1 || plan.Update[0].ID != "Extra-Pack" {
		t.Fatalf("expected only Extra-Pack updated, got %+v", plan.Update)
	}
	if len(plan.Install) != 0 || len(plan.Remove) != 0 {
		t.Errorf("expected no installs or removals, got %+v", plan)
	}
	if plan.Size != 20000000 {
		t.Errorf("expected update size 20000000, got %d", plan.Size)
	}
	if s.HasUpdate("Extra-Pack") {
		t.Error("expected no pending update after the record was rewritten")
	}
	if size, err := s.Tracker().ActualSize("Extra-Pack"); err != nil || size != 200000000 {
		t.Errorf("expected recorded size 200000000, got %d (%v)", size, err)
	}
	if got := testutil.ToFloat64(s.Metrics().Updates); got != 0 {
		t.Errorf("expected updates_available 0, got %v", got)
	}
	if got := testutil.ToFloat64(s.Metrics().Operations.WithLabelValues("update", resultOK)); got != 1 {
		t.Errorf("expected one successful update, got %v", got)
	}

	if _, err := s.Apply(context.Background(), ModeUpdate, nil, orch); !errors.Is(err, ErrNothingToDo) {
		t.Errorf("expected ErrNothingToDo once current, got %v", err)
	}
}

func TestApply_OrchestratorFailure(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t, Options{})
	boom := errors.New("transfer failed")
	before := s.Selection().Snapshot()

	_, err := s.Apply(context.Background(), ModeDownload, nil, &recordingOrchestrator{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped orchestrator error, got %v", err)
	}
	if after := s.Selection().Snapshot(); !reflect.DeepEqual(before, after) {
		t.Error("selection changed after a failed operation")
	}
	if got := testutil.ToFloat64(s.Metrics().Operations.WithLabelValues("download", resultFailed)); got != 1 {
		t.Errorf("expected one failed download, got %v", got)
	}
}

func TestPlanWriter(t *testing.T) {
	var buf bytes.Buffer
	plan := Plan{
		Mode:        ModeChange,
		Destination: "/srv/stockpile",
		Install:     []Artifact{{ID: "A", URL: "https://example.org/A.zip", Size: 10}},
		Remove:      []string{"B"},
		Size:        -5,
	}
	if err := (PlanWriter{W: &buf}).Execute(context.Background(), plan); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if decoded["mode"] != "change" {
		t.Errorf("expected mode change, got %v", decoded["mode"])
	}
	if strings.Contains(buf.String(), `"update"`) {
		t.Error("expected empty update list to be omitted")
	}
}
