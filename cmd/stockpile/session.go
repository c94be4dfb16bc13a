package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/justyntemme/stockpile/internal/app"
	"github.com/justyntemme/stockpile/internal/config"
	"github.com/justyntemme/stockpile/internal/debug"
	"github.com/justyntemme/stockpile/internal/fs"
	"github.com/justyntemme/stockpile/internal/store"
)

type globalOptions struct {
	configPath  string
	manifest    string
	dest        string
	yes         bool
	metricsFile string
	planOut     string
	debug       bool
}

func (o *globalOptions) setup() {
	if !o.debug {
		return
	}
	if debug.Enabled {
		debug.EnableAll()
		return
	}
	log.Printf("--debug has no effect: rebuild with -tags debug")
}

// configFile returns --config or the default location
func (o *globalOptions) configFile() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.ConfigPath()
}

// loadConfig reads the config file, creating it with defaults when missing
func (o *globalOptions) loadConfig() (*config.Manager, error) {
	mgr := config.NewManager()
	path := o.configFile()
	if err := mgr.LoadFrom(path); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := mgr.ParseError(); err != nil {
		warn("config %s could not be parsed, using defaults: %v", path, err)
	}
	return mgr, nil
}

// run is one CLI invocation: config, store and a synced session
type run struct {
	opts    *globalOptions
	cfg     config.Config
	db      *store.DB
	session *app.Session
	sync    app.SyncResult
}

// openRun loads everything a command needs. autoIDs feed the auto-download
// list.
func openRun(ctx context.Context, opts *globalOptions, autoIDs []string) (*run, error) {
	mgr, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	r := &run{opts: opts, cfg: cfg}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		// The cache is a convenience; run without it
		log.Printf("Store: %v", err)
	} else {
		r.db = db
	}

	dest := opts.dest
	if dest == "" && r.db != nil && cfg.Install.Destination == "" {
		dest, _ = r.db.Setting(store.KeyLastDestination)
	}

	r.session = app.NewSession(app.Options{
		Config:       cfg,
		Store:        r.db,
		Destination:  dest,
		AutoDownload: autoIDs,
	})

	if err := r.session.Load(ctx, r.source()); err != nil {
		r.close()
		return nil, err
	}
	if r.sync, err = r.session.Sync(); err != nil {
		r.close()
		return nil, err
	}
	for _, id := range r.sync.UnknownAuto {
		warn("%s is not in the catalog", id)
	}
	return r, nil
}

func (r *run) source() app.ManifestSource {
	switch {
	case r.opts.manifest != "":
		return app.FileSource{Path: r.opts.manifest, Key: r.cfg.Manifest.URL}
	case r.cfg.Manifest.Path != "":
		return app.FileSource{Path: r.cfg.Manifest.Path, Key: r.cfg.Manifest.URL}
	case r.db != nil:
		return app.CacheSource{DB: r.db, URL: r.cfg.Manifest.URL}
	}
	return app.FileSource{Path: r.cfg.Manifest.URL}
}

// close writes metrics and releases the session and store
func (r *run) close() {
	if r.opts.metricsFile != "" {
		if err := r.session.Metrics().WriteFile(r.opts.metricsFile); err != nil {
			log.Printf("Metrics: %v", err)
		}
	}
	r.session.Close()
	if r.db != nil {
		r.db.Close()
	}
}

// planOutput returns where plans go and a function to close it
func (r *run) planOutput() (io.Writer, func(), error) {
	if r.opts.planOut == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(r.opts.planOut)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// confirmer accepts with --yes, asks on a terminal, and declines otherwise.
// With behavior.confirmWarnings off, any warning refuses the operation.
func (r *run) confirmer() app.Confirmer {
	return app.ConfirmFunc(func(dest string, warnings []fs.PathWarning) bool {
		for _, w := range warnings {
			warn("%s", w)
		}
		if !r.cfg.Behavior.ConfirmWarnings {
			info("confirmWarnings is off; refusing %s", dest)
			return false
		}
		return r.ask(fmt.Sprintf("Continue installing into %s?", dest))
	})
}

// ask puts a yes/no question on the terminal. --yes answers it; without a
// terminal the answer is no.
func (r *run) ask(question string) bool {
	if r.opts.yes {
		return true
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		info("not a terminal; pass --yes to accept")
		return false
	}
	fmt.Printf("%s [y/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
