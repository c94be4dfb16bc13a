package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/justyntemme/stockpile/internal/app"
	"github.com/justyntemme/stockpile/internal/config"
)

const testManifest = `<list url="https://example.org/components/">
  <category id="Core" required="true">
    <component id="Core-Engine" required="true" size="500000000"/>
  </category>
  <category id="Extras">
    <component id="Extra-Pack" size="200000000"/>
  </category>
</list>`

func testOptions(t *testing.T) *globalOptions {
	t.Helper()
	return testOptionsWith(t, nil)
}

func testOptionsWith(t *testing.T, adjust func(*config.Config)) *globalOptions {
	t.Helper()
	dir := t.TempDir()

	manifest := filepath.Join(dir, "components.xml")
	if err := os.WriteFile(manifest, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Manifest.Path = manifest
	cfg.Install.Destination = filepath.Join(dir, "install")
	cfg.Install.Shortcuts = nil
	cfg.Store.Path = filepath.Join(dir, "stockpile.db")
	if adjust != nil {
		adjust(cfg)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	return &globalOptions{
		configPath:  configPath,
		planOut:     filepath.Join(dir, "plan.json"),
		metricsFile: filepath.Join(dir, "stockpile.prom"),
	}
}

func readPlan(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var plan map[string]any
	if err := json.Unmarshal(data, &plan); err != nil {
		t.Fatalf("plan is not JSON: %v", err)
	}
	return plan
}

func TestAutoWritesPlan(t *testing.T) {
	opts := testOptions(t)

	if err := operate(context.Background(), opts, app.ModeChange, []string{"Extra-Pack"}, nil); err != nil {
		t.Fatalf("operate failed: %v", err)
	}

	plan := readPlan(t, opts.planOut)
	if plan["mode"] != "change" {
		t.Errorf("expected change mode, got %v", plan["mode"])
	}
	install, _ := plan["install"].([]any)
	if len(install) != 2 {
		t.Errorf("expected Core-Engine and Extra-Pack in the plan, got %v", plan["install"])
	}
	if _, err := os.Stat(opts.metricsFile); err != nil {
		t.Errorf("expected metrics file, got %v", err)
	}
}

func TestAutoUnknownIDs(t *testing.T) {
	opts := testOptions(t)
	if err := operate(context.Background(), opts, app.ModeChange, []string{"Nope"}, nil); err == nil {
		t.Error("expected an error when no auto id is known")
	}
}

func TestOpenRun_ManifestFlagOverrides(t *testing.T) {
	opts := testOptions(t)
	opts.manifest = filepath.Join(t.TempDir(), "missing.xml")

	// Nothing cached under the configured URL yet
	if _, err := openRun(context.Background(), opts, nil); err == nil {
		t.Error("expected an error for a missing manifest file")
	}
}

func TestConfirmWarnings(t *testing.T) {
	testCases := []struct {
		name     string
		confirm  bool
		expected error
	}{
		{"prompting allowed", true, nil},
		{"warnings refuse", false, app.ErrDeclined},
	}

	for _, tc := range testCases {
		opts := testOptionsWith(t, func(cfg *config.Config) {
			cfg.Behavior.ConfirmWarnings = tc.confirm
		})
		opts.yes = true

		// A stray file makes the fresh destination non-empty
		mgr, err := opts.loadConfig()
		if err != nil {
			t.Fatal(err)
		}
		dest := mgr.Get().Install.Destination
		if err := os.MkdirAll(dest, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dest, "stray.txt"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		err = operate(context.Background(), opts, app.ModeDownload, nil, nil)
		if !errors.Is(err, tc.expected) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, err)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	opts := testOptions(t)
	dir := t.TempDir()

	execute := func(args ...string) {
		t.Helper()
		cmd := configCmd(opts)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("config %v: %v", args, err)
		}
	}

	execute("set-destination", filepath.Join(dir, "games"))
	execute("set-manifest", filepath.Join(dir, "list.xml"))

	mgr, err := opts.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg := mgr.Get()
	if cfg.Install.Destination != filepath.Join(dir, "games") {
		t.Errorf("expected destination %s, got %s", filepath.Join(dir, "games"), cfg.Install.Destination)
	}
	if cfg.Manifest.Path != filepath.Join(dir, "list.xml") {
		t.Errorf("expected manifest %s, got %s", filepath.Join(dir, "list.xml"), cfg.Manifest.Path)
	}

	execute("show")
	execute("init")

	mgr, err = opts.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got := mgr.Get().Manifest.Path; got != "" {
		t.Errorf("expected init to reset the manifest path, got %q", got)
	}
	backups, _ := filepath.Glob(filepath.Join(filepath.Dir(opts.configPath), "config.backup.*.json"))
	if len(backups) != 1 {
		t.Errorf("expected one backup, got %v", backups)
	}
}
