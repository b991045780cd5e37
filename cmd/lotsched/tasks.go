package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/lotsched/internal/scheduler"
)

func newStartCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "start <lot> <task>",
		Short: "Record that work on a task has started",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			lot, err := a.planner.MarkStarted(ctx, args[0], args[1], d)
			if err != nil {
				return err
			}
			return a.printTask(cmd, lot, args[1], "started")
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "actual start date YYYY-MM-DD (default today)")
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "complete <lot> <task>",
		Short: "Record that a task is finished",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			lot, err := a.planner.MarkComplete(ctx, args[0], args[1], d)
			if err != nil {
				return err
			}
			return a.printTask(cmd, lot, args[1], "completed")
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "actual end date YYYY-MM-DD (default today)")
	return cmd
}

func (a *app) printTask(cmd *cobra.Command, lot *scheduler.Lot, taskID, verb string) error {
	task := lot.Task(taskID)
	if a.jsonOut {
		return writeJSON(stdout(cmd), task)
	}
	fmt.Fprintf(stdout(cmd), "%s %s on %s (lot now %s)\n", task.Name, verb, lot.Name, lot.Status)
	return nil
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		result string
		id     string
		status string
	)

	cmd := &cobra.Command{
		Use:   "inspect <lot> <task>",
		Short: "Record an inspection against a task",
		Long: `Record or update an inspection. A task that requires inspection stays
blocked until an inspection with result "pass" is recorded for it.

Examples:
  lotsched inspect <lot> framing --result pass
  lotsched inspect <lot> framing --id insp-7 --result fail --status reinspect`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			res := scheduler.InspectionResult(result)
			switch res {
			case scheduler.InspectionPending, scheduler.InspectionPass, scheduler.InspectionFail:
			default:
				return fmt.Errorf("--result must be pending, pass or fail, got %q", result)
			}

			insp, err := a.planner.RecordInspection(ctx, args[0], scheduler.Inspection{
				ID:     id,
				TaskID: args[1],
				Result: res,
				Status: status,
			})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(stdout(cmd), insp)
			}
			fmt.Fprintf(stdout(cmd), "Inspection %s on %s: %s\n", insp.ID, insp.TaskID, insp.Result)
			return nil
		}),
	}
	cmd.Flags().StringVar(&result, "result", string(scheduler.InspectionPending), "pending, pass or fail")
	cmd.Flags().StringVar(&id, "id", "", "inspection ID to update (default new)")
	cmd.Flags().StringVar(&status, "status", "", "free-form workflow status")
	return cmd
}

func newMilestoneCmd(a *app) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "milestone <lot> <flag>",
		Short: "Set or clear a manual milestone flag",
		Long: `Manual flags drive milestones that no task can signal, such as a
permit being issued.

Examples:
  lotsched milestone <lot> permit_issued
  lotsched milestone <lot> permit_issued --clear`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			lot, err := a.planner.SetMilestoneFlag(ctx, args[0], args[1], !unset)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(stdout(cmd), lot.ManualMilestones)
			}
			fmt.Fprintf(stdout(cmd), "%s: %s = %t\n", lot.Name, args[1], lot.ManualMilestones[args[1]])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&unset, "clear", false, "clear the flag instead of setting it")
	return cmd
}
