package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/lotsched/internal/scheduler"
)

func newConflictsCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Report subcontractor over-booking across active lots",
		Long: `Scan every workday in the window and report each subcontractor booked on
more lots than its capacity allows. The default window is today plus the
configured monitor window.

Examples:
  lotsched conflicts
  lotsched conflicts --from 2024-03-01 --to 2024-04-30 --json`,
		Args: cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			window, err := a.conflictWindow(from, to)
			if err != nil {
				return err
			}

			conflicts, lots, err := a.planner.ScanConflicts(ctx, window)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(stdout(cmd), conflicts)
			}
			fmt.Fprintf(stdout(cmd), "Scanned %d lots, %s to %s\n\n", lots, window.From, window.To)
			return printConflicts(stdout(cmd), conflicts)
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (default from + monitor window)")
	return cmd
}

func (a *app) conflictWindow(from, to string) (scheduler.Window, error) {
	start, err := parseDateFlag("from", from)
	if err != nil {
		return scheduler.Window{}, err
	}
	end, err := parseDateFlag("to", to)
	if err != nil {
		return scheduler.Window{}, err
	}

	if start.IsZero() {
		start = a.planner.Today()
	}
	if end.IsZero() {
		days := a.cfg.Monitor.WindowDays
		if days <= 0 {
			days = 30
		}
		end = start.AddDays(days)
	}
	if end.Before(start) {
		return scheduler.Window{}, fmt.Errorf("--to %s is before --from %s", end, start)
	}
	return scheduler.Window{From: start, To: end}, nil
}
