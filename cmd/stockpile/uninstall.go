package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/justyntemme/stockpile/internal/fs"
)

func uninstallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove everything under the destination and the shortcuts",
		Long: `Delete every file and directory under the destination, then the
configured shortcut files. Entries that cannot be removed are reported and
skipped. Ctrl+C stops the sweep at the next entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRun(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer r.close()

			dest := r.session.Destination()
			if !r.ask(fmt.Sprintf("Delete everything under %s?", dest)) {
				info("cancelled")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := r.session.Uninstall(ctx, func(p fs.Progress) {
				if color {
					fmt.Fprintf(os.Stdout, "\r  %s", p.Label)
				}
			})
			if color {
				fmt.Println()
			}
			if err != nil {
				return err
			}

			for _, f := range res.Failed {
				warn("%s: %v", f.Path, f.Err)
			}
			if res.Cancelled {
				warn("stopped after removing %d entries", res.Removed)
				return nil
			}
			success("removed %d entries from %s", res.Removed, dest)
			return nil
		},
	}
}
