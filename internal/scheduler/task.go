package scheduler

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus int

const (
	TaskPending    TaskStatus = iota // Waiting on predecessors or its start date
	TaskReady                        // Predecessors complete, start date reached
	TaskInProgress                   // Work has started
	TaskBlocked                      // Waiting on a passing inspection
	TaskComplete                     // Work finished
	TaskDelayed                      // Overlay: late or carrying logged delay days
)

var taskStatusNames = map[TaskStatus]string{
	TaskPending:    "pending",
	TaskReady:      "ready",
	TaskInProgress: "in_progress",
	TaskBlocked:    "blocked",
	TaskComplete:   "complete",
	TaskDelayed:    "delayed",
}

func (s TaskStatus) String() string {
	if name, ok := taskStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseTaskStatus converts a status name back into a TaskStatus.
func ParseTaskStatus(name string) (TaskStatus, bool) {
	for s, n := range taskStatusNames {
		if n == name {
			return s, true
		}
	}
	return TaskPending, false
}

// Track is the construction phase a task belongs to.
type Track string

const (
	TrackFoundation Track = "foundation"
	TrackStructure  Track = "structure"
	TrackInterior   Track = "interior"
	TrackExterior   Track = "exterior"
	TrackFinal      Track = "final"
)

// Valid reports whether t is one of the known tracks.
func (t Track) Valid() bool {
	switch t {
	case TrackFoundation, TrackStructure, TrackInterior, TrackExterior, TrackFinal:
		return true
	}
	return false
}

// Relation is the temporal kind of a dependency edge.
type Relation string

const (
	FinishToStart  Relation = "FS"
	StartToStart   Relation = "SS"
	FinishToFinish Relation = "FF"
	StartToFinish  Relation = "SF"
)

// Valid reports whether r is one of the four supported relations.
func (r Relation) Valid() bool {
	switch r {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// Dependency is an edge stored on the successor pointing at its predecessor.
type Dependency struct {
	PredecessorID string   `json:"predecessor_id" yaml:"predecessor"`
	Relation      Relation `json:"relation" yaml:"relation"`
	LagDays       int      `json:"lag_days,omitempty" yaml:"lag,omitempty"`
}

// DelayInfo is the delay bookkeeping stamped on a directly delayed task.
type DelayInfo struct {
	Days     int       `json:"days,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	LoggedAt time.Time `json:"logged_at,omitempty"`
}

// Task is one unit of construction work on a lot.
type Task struct {
	ID                 string
	Name               string
	Trade              string
	SubcontractorID    string // Empty when unassigned
	DurationDays       int    // Workdays, at least 1
	ScheduledStart     civil.Date
	ScheduledEnd       civil.Date
	ActualStart        civil.Date // Zero when work has not started
	ActualEnd          civil.Date // Zero when work has not finished
	PinnedStart        civil.Date // Final track only: floor kept by every repack after a direct move
	Track              Track
	SortOrder          int
	Status             TaskStatus
	Dependencies       []Dependency
	BlocksFinal        bool // Final track cannot start before this task ends
	IsCriticalPath     bool // Advisory only
	RequiresInspection bool
	Delay              DelayInfo
}

// IsComplete reports whether the task is finished. Complete tasks are
// immutable anchors for every cascade.
func (t *Task) IsComplete() bool {
	return t.Status == TaskComplete || calendar.IsSet(t.ActualEnd)
}

// HasDates reports whether the task has been scheduled.
func (t *Task) HasDates() bool {
	return calendar.IsSet(t.ScheduledStart) && calendar.IsSet(t.ScheduledEnd)
}

// DependsOn reports whether the task has an edge naming predecessorID.
func (t *Task) DependsOn(predecessorID string) bool {
	for _, dep := range t.Dependencies {
		if dep.PredecessorID == predecessorID {
			return true
		}
	}
	return false
}

// Covers reports whether d falls inside the scheduled range.
func (t *Task) Covers(d civil.Date) bool {
	if !t.HasDates() {
		return false
	}
	return !d.Before(t.ScheduledStart) && !d.After(t.ScheduledEnd)
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	if task.Dependencies != nil {
		cp.Dependencies = append([]Dependency(nil), task.Dependencies...)
	}
	return &cp
}
