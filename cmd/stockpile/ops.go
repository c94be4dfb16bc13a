package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/stockpile/internal/app"
	"github.com/justyntemme/stockpile/internal/catalog"
)

func downloadCmd(opts *globalOptions) *cobra.Command {
	var selectIDs []string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Plan a fresh install of the required and selected components",
		RunE: func(cmd *cobra.Command, args []string) error {
			return operate(cmd.Context(), opts, app.ModeDownload, nil, func(s *app.Session) error {
				return selectAll(s, selectIDs, true)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&selectIDs, "select", "s", nil, "component or category ids to select")

	return cmd
}

func applyCmd(opts *globalOptions) *cobra.Command {
	var selectIDs, deselectIDs []string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Plan installing newly selected and removing deselected components",
		RunE: func(cmd *cobra.Command, args []string) error {
			return operate(cmd.Context(), opts, app.ModeChange, nil, func(s *app.Session) error {
				if err := selectAll(s, selectIDs, true); err != nil {
					return err
				}
				return selectAll(s, deselectIDs, false)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&selectIDs, "select", "s", nil, "ids to select")
	cmd.Flags().StringSliceVarP(&deselectIDs, "deselect", "x", nil, "ids to deselect")

	return cmd
}

func updateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Plan updates for installed components with newer builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return operate(cmd.Context(), opts, app.ModeUpdate, nil, nil)
		},
	}
}

func autoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auto <id>...",
		Short: "Select the given components and install them without asking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return operate(cmd.Context(), opts, app.ModeChange, args, nil)
		},
	}
}

// operate runs one operation: open, adjust the selection, apply through a
// PlanWriter and report.
func operate(ctx context.Context, opts *globalOptions, mode app.Mode, autoIDs []string, adjust func(*app.Session) error) error {
	r, err := openRun(ctx, opts, autoIDs)
	if err != nil {
		return err
	}
	defer r.close()

	if autoIDs != nil && !r.sync.RunImmediately {
		return errors.New("none of the requested components are in the catalog")
	}
	if adjust != nil {
		if err := adjust(r.session); err != nil {
			return err
		}
	}

	out, closeOut, err := r.planOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	// Auto runs never stop to ask
	confirm := r.confirmer()
	if r.sync.RunImmediately {
		r.opts.yes = true
	}

	plan, err := r.session.Apply(ctx, mode, confirm, app.PlanWriter{W: out})
	if errors.Is(err, app.ErrNothingToDo) {
		info("nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	switch mode {
	case app.ModeDownload:
		success("%s: %d component(s), %s", mode, len(plan.Install), sizeLine(plan.Size))
	default:
		success("%s: %d to install, %d to update, %d to remove, %s",
			mode, len(plan.Install), len(plan.Update), len(plan.Remove), catalog.FormatDelta(plan.Size))
	}
	if r.sync.ExitAfter {
		info("auto run finished")
	}
	return nil
}

func selectAll(s *app.Session, ids []string, checked bool) error {
	for _, id := range ids {
		if err := s.Select(id, checked); err != nil {
			return fmt.Errorf("select %s: %w", id, err)
		}
	}
	return nil
}
