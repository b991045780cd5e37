package scheduler

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// LotStatus is the lifecycle state of a whole lot.
type LotStatus int

const (
	LotNotStarted LotStatus = iota
	LotInProgress
	LotComplete
)

func (s LotStatus) String() string {
	switch s {
	case LotNotStarted:
		return "not_started"
	case LotInProgress:
		return "in_progress"
	case LotComplete:
		return "complete"
	}
	return "unknown"
}

// ScheduleChange is one audit entry written when a cascade is applied.
type ScheduleChange struct {
	ID         string     `json:"id"`
	LotID      string     `json:"lot_id"`
	TaskID     string     `json:"task_id"`
	OldStart   civil.Date `json:"old_start"`
	NewStart   civil.Date `json:"new_start"`
	Shift      int        `json:"shift"`
	Reason     string     `json:"reason,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Notified   bool       `json:"notified"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Lot is a single build lot and the tasks it owns. Engine functions treat a
// Lot as an immutable snapshot: they never modify the value they are given.
type Lot struct {
	ID                   string
	Name                 string
	StartDate            civil.Date
	TargetCompletionDate civil.Date
	ManualMilestones     map[string]bool
	Status               LotStatus
	Tasks                []Task
	History              []ScheduleChange
}

// Task returns a pointer into the lot's task slice, or nil.
func (l *Lot) Task(id string) *Task {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return &l.Tasks[i]
		}
	}
	return nil
}

// TaskByName returns the first task with the given name, or nil.
func (l *Lot) TaskByName(name string) *Task {
	for i := range l.Tasks {
		if l.Tasks[i].Name == name {
			return &l.Tasks[i]
		}
	}
	return nil
}

// Dependents returns the IDs of tasks that name taskID as a direct predecessor.
func (l *Lot) Dependents(taskID string) []string {
	var ids []string
	for i := range l.Tasks {
		if l.Tasks[i].DependsOn(taskID) {
			ids = append(ids, l.Tasks[i].ID)
		}
	}
	return ids
}

// TrackTasks returns the indexes of the lot's tasks on track, ordered by
// sort order (ties keep slice order).
func (l *Lot) TrackTasks(track Track) []int {
	var idx []int
	for i := range l.Tasks {
		if l.Tasks[i].Track == track {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return l.Tasks[idx[a]].SortOrder < l.Tasks[idx[b]].SortOrder
	})
	return idx
}

// Clone returns a deep copy of the lot.
func (l *Lot) Clone() *Lot {
	if l == nil {
		return nil
	}

	cp := *l
	if l.ManualMilestones != nil {
		cp.ManualMilestones = make(map[string]bool, len(l.ManualMilestones))
		for k, v := range l.ManualMilestones {
			cp.ManualMilestones[k] = v
		}
	}
	if l.Tasks != nil {
		cp.Tasks = make([]Task, len(l.Tasks))
		for i := range l.Tasks {
			cp.Tasks[i] = *cloneTask(&l.Tasks[i])
		}
	}
	if l.History != nil {
		cp.History = append([]ScheduleChange(nil), l.History...)
	}
	return &cp
}
