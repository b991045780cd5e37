package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/tui"
)

func newBoardCmd(a *app) *cobra.Command {
	var (
		logFile string
		monitor bool
		out     *os.File
	)

	cmd := &cobra.Command{
		Use:   "board <lot>",
		Short: "Open the interactive schedule board for a lot",
		Long: `Open a full-screen board showing a lot's tasks, progress and live
activity. Press r on a task to preview and apply a delay or reschedule.

Logs would corrupt the screen, so they are discarded unless --log-file is set.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if logFile == "" {
				cmd.SetErr(io.Discard)
				return nil
			}
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			out = f
			cmd.SetErr(f)
			return nil
		},
		PostRun: func(cmd *cobra.Command, args []string) {
			if out != nil {
				out.Close()
			}
		},
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			// Fail fast on an unknown lot before taking over the terminal
			if _, err := a.planner.GetLot(ctx, args[0]); err != nil {
				return err
			}

			boardCtx, stop := context.WithCancel(ctx)
			defer stop()
			g, gctx := errgroup.WithContext(boardCtx)
			if monitor {
				m, err := planner.NewMonitor(a.planner, a.bus, a.cfg.Monitor.Schedule, a.cfg.Monitor.WindowDays, a.log)
				if err != nil {
					return err
				}
				g.Go(func() error { return m.Run(gctx) })
			}

			p := tea.NewProgram(
				tui.New(gctx, a.planner, a.bus, args[0]),
				tea.WithAltScreen(),
				tea.WithContext(gctx),
			)
			g.Go(func() error {
				// Quitting the board stops the monitor too
				defer stop()
				_, err := p.Run()
				if err != nil && gctx.Err() != nil {
					return nil
				}
				return err
			})
			return g.Wait()
		}),
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file while the board is open")
	cmd.Flags().BoolVar(&monitor, "monitor", false, "run the capacity monitor in the background")
	return cmd
}
