package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/lotsched/internal/config"
	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/planner"
)

func newMonitorCmd(a *app) *cobra.Command {
	var (
		once     bool
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Scan for capacity conflicts on a cron schedule",
		Long: `Run the capacity scan on the configured cron schedule until interrupted.
Config files and the template directory are watched; edits are applied to
the running monitor without a restart.

Examples:
  lotsched monitor --once
  lotsched monitor --schedule "@every 30m"`,
		Args: cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			spec := a.cfg.Monitor.Schedule
			if schedule != "" {
				spec = schedule
			}
			m, err := planner.NewMonitor(a.planner, a.bus, spec, a.cfg.Monitor.WindowDays, a.log)
			if err != nil {
				return err
			}

			if once {
				conflicts, err := m.ScanOnce(ctx)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(stdout(cmd), conflicts)
				}
				return printConflicts(stdout(cmd), conflicts)
			}

			sub := a.bus.Subscribe(events.TopicCapacity, 64)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return m.Run(gctx) })
			g.Go(func() error {
				return config.Watch(gctx, a.watchPaths(), a.log, func() {
					cfg, err := a.reload()
					if err != nil {
						a.log.Error().Err(err).Msg("config reload failed; keeping previous settings")
						return
					}
					next := cfg.Monitor.Schedule
					if schedule != "" {
						next = schedule
					}
					if err := m.SetSchedule(next, cfg.Monitor.WindowDays); err != nil {
						a.log.Error().Err(err).Msg("monitor schedule rejected")
						return
					}
					a.log.Info().Str("schedule", next).Msg("config reloaded")
				})
			})
			g.Go(func() error {
				reportConflicts(gctx, stdout(cmd), sub)
				return nil
			})

			err = g.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single scan and exit")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec (overrides config)")
	return cmd
}

// watchPaths lists the files and directories whose edits trigger a reload.
func (a *app) watchPaths() []string {
	return []string{a.globalPath, a.projectPath, a.cfg.TemplatesDir}
}

// reportConflicts prints capacity events until ctx ends or the bus closes.
func reportConflicts(ctx context.Context, w io.Writer, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.ConflictDetectedEvent:
				fmt.Fprintf(w, "%s  %s booked %d/%d  lots %v\n", e.Date, e.SubcontractorID, e.Booked, e.Capacity, e.Lots)
			case events.ConflictScanFinishedEvent:
				fmt.Fprintf(w, "scan %s..%s: %d conflicts across %d lots (%s)\n", e.From, e.To, e.Conflicts, e.Lots, e.Duration)
			}
		}
	}
}
