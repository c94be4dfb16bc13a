package fs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func buildInstall(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "install")
	files := []string{
		"Launcher/app.bin",
		"Launcher/res/icon.png",
		"Data/games.db",
		"readme.txt",
	}
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), DirPermission); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("payload"), FilePermission); err != nil {
			t.Fatal(err)
		}
	}
	if err := WriteRecord(root, "Core-Engine", 7, ""); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestSweep_RemovesEverything(t *testing.T) {
	root := buildInstall(t)

	var calls, lastTotal int
	res := Sweep(context.Background(), root, func(done, total int) {
		calls++
		lastTotal = total
	})

	if len(res.Failed) != 0 {
		t.Errorf("expected no failures, got %v", res.Failed)
	}
	// 4 files + record, plus Launcher, Launcher/res, Data, Components
	if res.Removed != 9 {
		t.Errorf("expected 9 removed entries, got %d", res.Removed)
	}
	if calls != lastTotal || lastTotal != 9 {
		t.Errorf("expected 9 progress calls, got %d of %d", calls, lastTotal)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("expected root removed, stat err=%v", err)
	}
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission-based failure needs a non-root unix user")
	}
	root := buildInstall(t)
	locked := filepath.Join(root, "Launcher", "res")
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, DirPermission) })

	res := Sweep(context.Background(), root, nil)

	if len(res.Failed) == 0 {
		t.Fatal("expected failures for the locked directory")
	}
	// Everything outside the locked subtree is gone
	for _, p := range []string{"Data", "readme.txt", RecordDir} {
		if _, err := os.Stat(filepath.Join(root, p)); !os.IsNotExist(err) {
			t.Errorf("expected %s removed despite earlier failures", p)
		}
	}
	if _, err := os.Stat(filepath.Join(locked, "icon.png")); err != nil {
		t.Errorf("expected locked file to survive, got %v", err)
	}
}

func TestSweep_MissingRoot(t *testing.T) {
	res := Sweep(context.Background(), filepath.Join(t.TempDir(), "gone"), nil)
	if res.Removed != 0 || len(res.Failed) == 0 {
		t.Errorf("expected a single failure for a missing root, got %+v", res)
	}
}

func TestSweep_Cancelled(t *testing.T) {
	root := buildInstall(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Sweep(ctx, root, nil)
	if !res.Cancelled {
		t.Error("expected Cancelled")
	}
	if res.Removed != 0 {
		t.Errorf("expected nothing removed, got %d", res.Removed)
	}
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "Flashy.lnk")
	if err := os.WriteFile(a, nil, FilePermission); err != nil {
		t.Fatal(err)
	}
	nonEmpty := filepath.Join(dir, "busy")
	if err := os.MkdirAll(filepath.Join(nonEmpty, "x"), DirPermission); err != nil {
		t.Fatal(err)
	}

	res := RemoveFiles([]string{a, filepath.Join(dir, "missing.lnk"), "", nonEmpty})
	if res.Removed != 1 {
		t.Errorf("expected 1 removed, got %d", res.Removed)
	}
	if len(res.Failed) != 1 || res.Failed[0].Path != nonEmpty {
		t.Errorf("expected one failure for %s, got %v", nonEmpty, res.Failed)
	}
}
