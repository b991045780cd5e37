package scheduler

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// 2024-01-01 is a Monday.
func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func jan(d int) civil.Date {
	return date(2024, time.January, d)
}

// scheduled builds a dated task on the standard calendar.
func scheduled(id string, track Track, sortOrder int, start civil.Date, duration int, deps ...Dependency) Task {
	cal := calendar.Standard()
	return Task{
		ID:             id,
		Name:           id,
		DurationDays:   duration,
		Track:          track,
		SortOrder:      sortOrder,
		ScheduledStart: start,
		ScheduledEnd:   cal.AddWorkDays(start, duration-1),
		Dependencies:   deps,
	}
}

func completed(t Task) Task {
	t.ActualStart = t.ScheduledStart
	t.ActualEnd = t.ScheduledEnd
	t.Status = TaskComplete
	return t
}

func blocking(t Task) Task {
	t.BlocksFinal = true
	return t
}

func lotOf(id string, tasks ...Task) *Lot {
	return &Lot{
		ID:               id,
		Name:             id,
		StartDate:        tasks[0].ScheduledStart,
		ManualMilestones: map[string]bool{},
		Tasks:            tasks,
	}
}

func dep(pred string, rel Relation, lag int) Dependency {
	return Dependency{PredecessorID: pred, Relation: rel, LagDays: lag}
}
