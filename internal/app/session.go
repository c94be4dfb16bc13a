package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/justyntemme/stockpile/internal/catalog"
	"github.com/justyntemme/stockpile/internal/config"
	"github.com/justyntemme/stockpile/internal/debug"
	"github.com/justyntemme/stockpile/internal/fs"
	"github.com/justyntemme/stockpile/internal/store"
)

// ErrNotLoaded is returned by operations that need a catalog before Load ran
var ErrNotLoaded = errors.New("manifest not loaded")

// Options configure a Session
type Options struct {
	Config config.Config
	// Store caches manifests and remembers the last destination. May be nil.
	Store *store.DB
	// Destination overrides Config.Install.Destination when set.
	Destination string
	// AutoDownload lists component ids to select and install without asking.
	AutoDownload []string
	// OpenUpdates asks for the updates view regardless of what Sync finds.
	OpenUpdates bool
}

// Session is the single owner of the catalog, the selection and the
// installed-state baseline for one run. It is not safe for concurrent use;
// readers take Snapshots.
type Session struct {
	cfg   config.Config
	store *store.DB
	fsys  *fs.System
	dest  string

	tree    *catalog.Tree
	sel     *catalog.Selection
	tracker *fs.Tracker

	autoDownload []string
	openUpdates  bool
	updates      map[string]bool
	reinstall    map[string]bool

	metrics *Metrics
	gen     int64
}

// NewSession creates a session and starts its filesystem worker. Call Close
// when done.
func NewSession(opts Options) *Session {
	dest := opts.Destination
	if dest == "" {
		dest = opts.Config.Install.Destination
	}
	s := &Session{
		cfg:          opts.Config,
		store:        opts.Store,
		fsys:         fs.NewSystem(),
		dest:         dest,
		autoDownload: append([]string(nil), opts.AutoDownload...),
		openUpdates:  opts.OpenUpdates,
		updates:      make(map[string]bool),
		reinstall:    make(map[string]bool),
		metrics:      NewMetrics(),
	}
	go s.fsys.Start()
	debug.Log(debug.APP, "session started, destination %q", dest)
	return s
}

// Close stops the filesystem worker
func (s *Session) Close() {
	close(s.fsys.RequestChan)
}

func (s *Session) Destination() string { return s.dest }

func (s *Session) Tree() *catalog.Tree { return s.tree }

func (s *Session) Selection() *catalog.Selection { return s.sel }

func (s *Session) Tracker() *fs.Tracker { return s.tracker }

func (s *Session) Metrics() *Metrics { return s.metrics }

// Load fetches and parses the manifest. When the source cannot be fetched and
// a store is configured, the cached copy is used instead. A manifest that does
// not parse ends the session: no partial catalog is kept. Without a
// destination there is nothing to scan, so Load fails with a *fs.PathError.
func (s *Session) Load(ctx context.Context, src ManifestSource) error {
	if s.dest == "" {
		return &fs.PathError{Path: s.dest, Reason: "no destination configured"}
	}
	data, err := s.fetch(ctx, src)
	if err != nil {
		return err
	}

	tree, err := catalog.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	debug.Log(debug.APP, "loaded %d nodes from %s", tree.Len(), src.Name())

	if s.store != nil {
		if err := s.store.SaveManifest(src.Name(), data, time.Now()); err != nil {
			log.Printf("Session: could not cache manifest: %v", err)
		}
	}

	s.tree = tree
	if err := s.Rescan(ctx); err != nil {
		s.tree = nil
		return err
	}
	s.sel = catalog.NewSelection(tree, s.tracker)
	s.metrics.SelectedBytes.Set(float64(s.sel.Total()))
	return nil
}

func (s *Session) fetch(ctx context.Context, src ManifestSource) ([]byte, error) {
	rc, err := src.Fetch(ctx)
	if err == nil {
		defer rc.Close()
		data, readErr := io.ReadAll(rc)
		if readErr == nil {
			return data, nil
		}
		err = readErr
	}

	if s.store == nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", src.Name(), err)
	}
	cached, cacheErr := s.store.LoadManifest(src.Name())
	if cacheErr != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", src.Name(), err)
	}
	log.Printf("Session: using manifest cached %s (%v)", cached.FetchedAt.Format(time.RFC3339), err)
	return cached.Content, nil
}

// Rescan reads the metadata records under the destination again and hands
// the new baseline to the selection.
func (s *Session) Rescan(ctx context.Context) error {
	resp, err := s.call(ctx, fs.Request{Op: fs.ScanRecords, Path: s.dest}, nil)
	if err != nil {
		return err
	}
	if resp.Err != nil {
		return fmt.Errorf("scan %s: %w", s.dest, resp.Err)
	}
	s.tracker = resp.Tracker
	if s.sel != nil {
		s.sel.SetInstalled(s.tracker)
		s.metrics.SelectedBytes.Set(float64(s.sel.Total()))
	}
	return nil
}

// call sends req to the filesystem worker and waits for its response,
// forwarding progress updates for the same request.
func (s *Session) call(ctx context.Context, req fs.Request, onProgress func(fs.Progress)) (fs.Response, error) {
	s.gen++
	req.Gen = s.gen
	s.fsys.RequestChan <- req

	done := ctx.Done()
	for {
		select {
		case resp := <-s.fsys.ResponseChan:
			if resp.Gen != req.Gen {
				debug.Log(debug.APP, "dropping stale response gen=%d", resp.Gen)
				continue
			}
			return resp, nil
		case p := <-s.fsys.ProgressChan:
			if p.Gen == req.Gen && onProgress != nil {
				onProgress(p)
			}
		case <-done:
			if req.Op != fs.SweepDir {
				return fs.Response{}, ctx.Err()
			}
			// Keep waiting: the sweep stops at the next entry and reports
			// what it removed so far.
			s.fsys.RequestChan <- fs.Request{Op: fs.CancelSweep}
			done = nil
		}
	}
}

// Select validates and applies a check or uncheck by id
func (s *Session) Select(id string, checked bool) error {
	if s.sel == nil {
		return ErrNotLoaded
	}
	if err := s.sel.ToggleID(id, checked); err != nil {
		s.metrics.Rejections.Inc()
		return err
	}
	s.metrics.SelectedBytes.Set(float64(s.sel.Total()))
	return nil
}

// HasUpdate reports whether Sync flagged id as having a newer build
func (s *Session) HasUpdate(id string) bool { return s.updates[id] }

// NeedsReinstall reports whether id is installed with an unreadable record
func (s *Session) NeedsReinstall(id string) bool { return s.reinstall[id] }

// rememberDestination stores the destination of a successful operation
func (s *Session) rememberDestination() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSetting(store.KeyLastDestination, s.dest); err != nil {
		log.Printf("Session: could not save destination: %v", err)
	}
}
