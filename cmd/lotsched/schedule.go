package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/scheduler"
)

var errDependencyViolation = errors.New("move violates task dependencies")

// changeFlags are shared by delay and reschedule.
type changeFlags struct {
	reason   string
	notes    string
	notified bool
	dryRun   bool
}

func (f *changeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.reason, "reason", "", "reason recorded in the change history")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&f.notified, "notified", false, "mark affected parties as already notified")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "preview the cascade without saving it")
}

func (f *changeFlags) request() planner.ChangeRequest {
	return planner.ChangeRequest{Reason: f.reason, Notes: f.notes, Notified: f.notified}
}

// planOutput is the JSON shape of a preview or an applied change.
type planOutput struct {
	Preview   scheduler.Preview         `json:"preview"`
	Conflicts []scheduler.Conflict      `json:"introduced_conflicts,omitempty"`
	Applied   bool                      `json:"applied"`
	Change    *scheduler.ScheduleChange `json:"change,omitempty"`
}

// runChange previews the move, reports the conflicts it would add and, unless
// this is a dry run, applies exactly the plan that was shown.
func (a *app) runChange(ctx context.Context, cmd *cobra.Command, f *changeFlags, preview func() (*scheduler.Plan, error)) error {
	plan, err := preview()
	if err != nil {
		return err
	}

	var introduced []scheduler.Conflict
	if plan.Outcome == scheduler.OutcomeShifted {
		introduced, err = a.planner.PreviewMoveConflicts(ctx, plan, plan.AffectedWindow())
		if err != nil {
			return err
		}
	}

	out := planOutput{Preview: plan.Preview, Conflicts: introduced}
	if !f.dryRun && plan.Outcome == scheduler.OutcomeShifted {
		res, err := a.planner.ApplyPlan(ctx, plan, f.request())
		if err != nil {
			return err
		}
		out.Applied = res.Applied()
		out.Change = res.Change
	}

	if a.jsonOut {
		return writeJSON(stdout(cmd), out)
	}
	if err := printPlan(stdout(cmd), plan, introduced); err != nil {
		return err
	}
	switch {
	case out.Applied:
		fmt.Fprintf(stdout(cmd), "\nApplied as change %s\n", out.Change.ID)
	case f.dryRun && plan.Outcome == scheduler.OutcomeShifted:
		fmt.Fprintln(stdout(cmd), "\nDry run: nothing saved")
	}
	if plan.Outcome == scheduler.OutcomeDependencyViolation {
		return fmt.Errorf("%w: %s", errDependencyViolation, plan.TaskID)
	}
	return nil
}

func newDelayCmd(a *app) *cobra.Command {
	var f changeFlags

	cmd := &cobra.Command{
		Use:   "delay <lot> <task> <days>",
		Short: "Push a task back by a number of workdays and cascade",
		Long: `Delay a task by whole workdays. Every dependent task moves with it and
the final track is repacked. Completed tasks never move.

Examples:
  lotsched delay <lot> framing 3 --reason "rain" --dry-run
  lotsched delay <lot> framing 3 --reason "rain" --notified`,
		Args: cobra.ExactArgs(3),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[2])
			if err != nil || days < 0 {
				return fmt.Errorf("days must be a non-negative integer, got %q", args[2])
			}
			return a.runChange(ctx, cmd, &f, func() (*scheduler.Plan, error) {
				return a.planner.PreviewDelay(ctx, args[0], args[1], days)
			})
		}),
	}
	f.register(cmd)
	return cmd
}

func newRescheduleCmd(a *app) *cobra.Command {
	var f changeFlags

	cmd := &cobra.Command{
		Use:   "reschedule <lot> <task> <date>",
		Short: "Move a task to a new start date and cascade",
		Long: `Move a task to start on a given date. A non-workday is moved forward to
the next workday. Moving a task before its predecessors allow is refused.

Examples:
  lotsched reschedule <lot> drywall 2024-05-06 --reason "material delivery"`,
		Args: cobra.ExactArgs(3),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag("date", args[2])
			if err != nil {
				return err
			}
			return a.runChange(ctx, cmd, &f, func() (*scheduler.Plan, error) {
				return a.planner.PreviewReschedule(ctx, args[0], args[1], date)
			})
		}),
	}
	f.register(cmd)
	return cmd
}

func newNotifiedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notified <change-id>",
		Short: "Record that a schedule change was communicated",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if err := a.planner.MarkNotified(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Change %s marked notified\n", args[0])
			return nil
		}),
	}
}
