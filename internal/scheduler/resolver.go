package scheduler

import (
	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// EarliestAllowedStart computes the earliest date task may start given the
// current dates of its predecessors in lotTasks. Every edge must hold at once,
// so the latest constraint wins. ok is false when no edge constrains the task
// (no dependencies, or every predecessor is missing or undated).
func EarliestAllowedStart(task *Task, lotTasks []Task, cal *calendar.WorkCalendar) (civil.Date, bool) {
	byID := make(map[string]*Task, len(lotTasks))
	for i := range lotTasks {
		byID[lotTasks[i].ID] = &lotTasks[i]
	}
	return earliestAllowedStart(task, byID, cal)
}

func earliestAllowedStart(task *Task, byID map[string]*Task, cal *calendar.WorkCalendar) (civil.Date, bool) {
	var (
		earliest civil.Date
		found    bool
	)

	for _, dep := range task.Dependencies {
		pred, ok := byID[dep.PredecessorID]
		if !ok || !pred.HasDates() {
			continue
		}

		constraint, ok := edgeConstraint(dep, pred, task.DurationDays, cal)
		if !ok {
			continue
		}

		if !found || constraint.After(earliest) {
			earliest = constraint
			found = true
		}
	}

	if !found {
		return civil.Date{}, false
	}
	return cal.NextWorkDay(earliest), true
}

// edgeConstraint resolves one edge into the earliest start it permits.
func edgeConstraint(dep Dependency, pred *Task, duration int, cal *calendar.WorkCalendar) (civil.Date, bool) {
	lag := dep.LagDays
	if lag < 0 {
		lag = 0
	}
	back := duration - 1
	if back < 0 {
		back = 0
	}

	switch dep.Relation {
	case FinishToStart, "":
		return cal.AddWorkDays(pred.ScheduledEnd, 1+lag), true
	case StartToStart:
		return cal.AddWorkDays(pred.ScheduledStart, lag), true
	case FinishToFinish:
		finish := cal.AddWorkDays(pred.ScheduledEnd, lag)
		return cal.SubtractWorkDays(finish, back), true
	case StartToFinish:
		finish := cal.AddWorkDays(pred.ScheduledStart, lag)
		return cal.SubtractWorkDays(finish, back), true
	}
	return civil.Date{}, false
}
