package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/scheduler"
)

func newLotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lot",
		Short: "Create, inspect and remove build lots",
	}
	cmd.AddCommand(newLotCreateCmd(a), newLotShowCmd(a), newLotListCmd(a), newLotDeleteCmd(a))
	return cmd
}

func newLotCreateCmd(a *app) *cobra.Command {
	var (
		template string
		start    string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a lot from a template",
		Long: `Create a lot and schedule every template task on the work calendar.

The start date is moved forward to the next workday when needed. Tasks are
assigned to subcontractors by trade.

Examples:
  lotsched lot create "Lot 14" --start 2024-03-04
  lotsched lot create "Lot 15" --start 2024-03-11 --template duplex`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag("start", start)
			if err != nil {
				return err
			}
			if date.IsZero() {
				date = a.planner.Today()
			}

			lot, err := a.planner.CreateLot(ctx, planner.CreateLotRequest{
				Name:      args[0],
				Template:  template,
				StartDate: date,
			})
			if err != nil {
				return err
			}

			if a.jsonOut {
				return writeJSON(stdout(cmd), lot)
			}
			fmt.Fprintf(stdout(cmd), "Created lot %s (%s): %d tasks, %s to %s\n",
				lot.Name, lot.ID, len(lot.Tasks), lot.StartDate, lot.TargetCompletionDate)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "template name (default from config)")
	cmd.Flags().StringVar(&start, "start", "", "lot start date YYYY-MM-DD (default today)")
	return cmd
}

// lotView is the JSON shape of lot show.
type lotView struct {
	*planner.Report
	Tasks []scheduler.Task `json:"tasks"`
}

func newLotShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <lot>",
		Short: "Show a lot's tasks, progress and change history",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			report, err := a.planner.LotReport(ctx, args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(stdout(cmd), lotView{Report: report, Tasks: report.Lot.Tasks})
			}
			return printReport(stdout(cmd), report)
		}),
	}
}

func newLotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List lots",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			lots, err := a.planner.ListLots(ctx)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(stdout(cmd), lots)
			}
			return printLots(stdout(cmd), lots)
		}),
	}
}

func newLotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <lot>",
		Short: "Delete a lot with its tasks, inspections and history",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if err := a.planner.DeleteLot(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Deleted lot %s\n", args[0])
			return nil
		}),
	}
}
