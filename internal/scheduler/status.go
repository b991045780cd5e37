package scheduler

import (
	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// InspectionResult is the outcome recorded for an inspection.
type InspectionResult string

const (
	InspectionPending InspectionResult = "pending"
	InspectionPass    InspectionResult = "pass"
	InspectionFail    InspectionResult = "fail"
)

// Inspection is a record linked to a task that requires sign-off.
type Inspection struct {
	ID     string
	TaskID string
	Result InspectionResult
	Status string // Free-form workflow status from the inspection system
}

// inspectionPassed reports whether any inspection linked to taskID passed.
func inspectionPassed(taskID string, inspections []Inspection) bool {
	for _, insp := range inspections {
		if insp.TaskID == taskID && insp.Result == InspectionPass {
			return true
		}
	}
	return false
}

// DeriveStatus computes a task's lifecycle state from its own fields, the
// other tasks of its lot, and its linked inspections, as of today.
//
// Priority: complete > blocked > delayed > in_progress > ready > pending.
func DeriveStatus(task *Task, lotTasks []Task, inspections []Inspection, today civil.Date) TaskStatus {
	if task.IsComplete() {
		return TaskComplete
	}

	if task.RequiresInspection && !inspectionPassed(task.ID, inspections) {
		return TaskBlocked
	}

	if calendar.IsSet(task.ScheduledEnd) && today.After(task.ScheduledEnd) {
		return TaskDelayed
	}
	if task.Delay.Days > 0 {
		return TaskDelayed
	}

	if calendar.IsSet(task.ActualStart) {
		return TaskInProgress
	}

	if predecessorsComplete(task, lotTasks) && calendar.IsSet(task.ScheduledStart) && !today.Before(task.ScheduledStart) {
		return TaskReady
	}

	return TaskPending
}

// predecessorsComplete reports whether every predecessor present in the lot
// is complete. Edges naming tasks outside the lot do not hold a task back.
func predecessorsComplete(task *Task, lotTasks []Task) bool {
	for _, dep := range task.Dependencies {
		for i := range lotTasks {
			if lotTasks[i].ID == dep.PredecessorID && !lotTasks[i].IsComplete() {
				return false
			}
		}
	}
	return true
}

// DeriveAll evaluates DeriveStatus for every task in the lot, keyed by task ID.
func DeriveAll(lot *Lot, inspections []Inspection, today civil.Date) map[string]TaskStatus {
	statuses := make(map[string]TaskStatus, len(lot.Tasks))
	for i := range lot.Tasks {
		statuses[lot.Tasks[i].ID] = DeriveStatus(&lot.Tasks[i], lot.Tasks, inspections, today)
	}
	return statuses
}

// WithDerivedStatus returns a copy of the lot with every task's Status and
// the lot Status refreshed.
func WithDerivedStatus(lot *Lot, inspections []Inspection, today civil.Date) *Lot {
	out := lot.Clone()
	statuses := DeriveAll(lot, inspections, today)
	for i := range out.Tasks {
		out.Tasks[i].Status = statuses[out.Tasks[i].ID]
	}
	out.Status = LotStatusOf(out)
	return out
}

// LotStatusOf derives the lot's status: complete when every task is complete,
// in progress once any task has started or finished, otherwise not started.
func LotStatusOf(lot *Lot) LotStatus {
	if len(lot.Tasks) == 0 {
		return LotNotStarted
	}

	complete := 0
	started := false
	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		if t.IsComplete() {
			complete++
			started = true
			continue
		}
		if calendar.IsSet(t.ActualStart) {
			started = true
		}
	}

	switch {
	case complete == len(lot.Tasks):
		return LotComplete
	case started:
		return LotInProgress
	}
	return LotNotStarted
}
