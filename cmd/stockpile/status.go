package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/stockpile/internal/app"
	"github.com/justyntemme/stockpile/internal/catalog"
	"github.com/justyntemme/stockpile/internal/store"
)

func statusCmd(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show installed components, updates and size change",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRun(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer r.close()

			printStatus(r, r.sync)
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			info("watching %s for changes (Ctrl+C to stop)", r.session.Destination())
			return r.session.Watch(ctx, func(res app.SyncResult) {
				fmt.Println()
				printStatus(r, res)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and report changes to installed components")

	return cmd
}

func printStatus(r *run, res app.SyncResult) {
	s := r.session
	tracker := s.Tracker()

	fmt.Printf("Destination: %s\n", s.Destination())
	if r.db != nil {
		if cached, err := r.db.LoadManifest(r.cfg.Manifest.URL); err == nil {
			fmt.Printf("Manifest:    cached %s\n", humanize.Time(cached.FetchedAt))
		} else if !errors.Is(err, store.ErrNoManifest) {
			warn("manifest cache: %v", err)
		}
	}

	installed := tracker.Installed()
	fmt.Printf("Installed:   %d components, %s\n", len(installed), sizeLine(catalog.InstalledSize(s.Tree(), tracker)))
	for _, id := range installed {
		if _, ok := s.Tree().Lookup(id); !ok {
			info("%s is installed but no longer in the catalog", id)
		}
	}

	if len(res.Updates) > 0 {
		success("%d update(s) available", len(res.Updates))
		for _, id := range res.Updates {
			info("%s", id)
		}
	}
	if len(res.NeedsReinstall) > 0 {
		warn("%d component(s) need reinstalling", len(res.NeedsReinstall))
		for _, id := range res.NeedsReinstall {
			info("%s", id)
		}
	}

	delta := catalog.SizeDelta(s.Selection(), tracker)
	fmt.Printf("Change:      %s\n", catalog.FormatDelta(delta))
}

// sizeLine shows a size both scaled and exact
func sizeLine(n int64) string {
	return fmt.Sprintf("%s (%s bytes)", catalog.FormatBytes(n), humanize.Comma(n))
}
