package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/persistence"
	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/scheduler"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func dateCell(d civil.Date) string {
	if !calendar.IsSet(d) {
		return "-"
	}
	return d.String()
}

func printLots(w io.Writer, lots []persistence.LotSummary) error {
	if len(lots) == 0 {
		_, err := fmt.Fprintln(w, "No lots.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTART\tTARGET\tSTATUS")
	for _, l := range lots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Name, dateCell(l.StartDate), dateCell(l.TargetCompletionDate), l.Status)
	}
	return tw.Flush()
}

func printReport(w io.Writer, r *planner.Report) error {
	s := r.Summary
	fmt.Fprintf(w, "%s (%s)\n", s.Name, s.LotID)
	fmt.Fprintf(w, "Status:     %s, %d%% (%s)\n", s.Status, s.Progress, s.Milestone.Name)
	fmt.Fprintf(w, "Completion: predicted %s, target %s, variance %+d workdays\n\n",
		dateCell(s.PredictedCompletion), dateCell(s.TargetCompletion), s.VarianceDays)

	tw := newTable(w)
	fmt.Fprintln(tw, "TASK\tNAME\tTRACK\tSTART\tEND\tSTATUS\tSUB")
	for _, t := range r.Lot.Tasks {
		sub := t.SubcontractorID
		if sub == "" {
			sub = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Name, t.Track, dateCell(t.ScheduledStart), dateCell(t.ScheduledEnd), t.Status, sub)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Changes) > 0 {
		fmt.Fprintln(w, "\nSchedule changes:")
		tw = newTable(w)
		for _, c := range r.Changes {
			notified := ""
			if c.Notified {
				notified = "notified"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s -> %s\t%+d\t%s\t%s\n",
				c.ID, c.TaskID, dateCell(c.OldStart), dateCell(c.NewStart), c.Shift, c.Reason, notified)
		}
		return tw.Flush()
	}
	return nil
}

func printPlan(w io.Writer, plan *scheduler.Plan, introduced []scheduler.Conflict) error {
	switch plan.Outcome {
	case scheduler.OutcomeDependencyViolation:
		earliest := "-"
		if plan.EarliestStart != nil {
			earliest = plan.EarliestStart.String()
		}
		_, err := fmt.Fprintf(w, "Dependency violation: %s cannot start before %s (requested %s)\n",
			plan.TaskID, earliest, dateCell(plan.NormalizedDate))
		return err
	case scheduler.OutcomeNoOp:
		_, err := fmt.Fprintf(w, "No change: %s already starts on %s\n", plan.TaskID, dateCell(plan.NormalizedDate))
		return err
	}

	if plan.RequestedDate != plan.NormalizedDate && calendar.IsSet(plan.RequestedDate) {
		fmt.Fprintf(w, "Requested %s is not a workday; using %s\n", plan.RequestedDate, plan.NormalizedDate)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "TASK\tNAME\tWAS\tNOW")
	for _, a := range plan.Affected {
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%s..%s\n", a.TaskID, a.Name,
			dateCell(a.OldStart), dateCell(a.OldEnd), dateCell(a.NewStart), dateCell(a.NewEnd))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nShift %+d workdays. Completion %s -> %s\n", plan.Shift, dateCell(plan.OldCompletion), dateCell(plan.NewCompletion))

	if len(introduced) > 0 {
		fmt.Fprintf(w, "\nThis move introduces %d capacity conflict(s):\n", len(introduced))
		return printConflicts(w, introduced)
	}
	return nil
}

func printConflicts(w io.Writer, conflicts []scheduler.Conflict) error {
	if len(conflicts) == 0 {
		_, err := fmt.Fprintln(w, "No capacity conflicts.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tSUBCONTRACTOR\tBOOKED\tCAPACITY\tLOTS")
	for _, c := range conflicts {
		lots := make([]string, 0, len(c.Jobs))
		for _, j := range c.Jobs {
			lots = append(lots, fmt.Sprintf("%s/%s", j.LotName, j.TaskName))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", c.Date, c.SubcontractorName, c.Booked, c.Capacity, strings.Join(lots, ", "))
	}
	return tw.Flush()
}
