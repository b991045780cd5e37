package scheduler

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// ConflictJob is one booking that contributes to an over-capacity day.
type ConflictJob struct {
	LotID    string `json:"lot_id"`
	LotName  string `json:"lot_name"`
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
}

// Conflict reports a subcontractor booked on more lots than it can serve.
type Conflict struct {
	SubcontractorID   string        `json:"subcontractor_id"`
	SubcontractorName string        `json:"subcontractor_name"`
	Date              civil.Date    `json:"date"`
	Booked            int           `json:"booked"`
	Capacity          int           `json:"capacity"`
	Jobs              []ConflictJob `json:"jobs"`
}

// Window is an inclusive date range.
type Window struct {
	From civil.Date
	To   civil.Date
}

// DetectConflicts scans every workday of the window and reports, per
// subcontractor and day, when the number of distinct lots with an incomplete
// assigned task covering that day exceeds the subcontractor's capacity.
// Subcontractors with a non-positive capacity are never over-booked.
// Non-workdays inside a task's range book nobody.
func DetectConflicts(lots []*Lot, subs []Subcontractor, window Window, cal *calendar.WorkCalendar) []Conflict {
	days := cal.WorkDaysIn(window.From, window.To)
	if len(days) == 0 {
		return nil
	}

	sorted := append([]Subcontractor(nil), subs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var conflicts []Conflict
	for _, sub := range sorted {
		if sub.MaxConcurrentLots <= 0 {
			continue
		}
		bookings := bookingsFor(sub.ID, lots)
		if len(bookings) == 0 {
			continue
		}

		for _, d := range days {
			var jobs []ConflictJob
			distinct := make(map[string]bool)
			for _, b := range bookings {
				if !b.task.Covers(d) {
					continue
				}
				distinct[b.lot.ID] = true
				jobs = append(jobs, ConflictJob{
					LotID:    b.lot.ID,
					LotName:  b.lot.Name,
					TaskID:   b.task.ID,
					TaskName: b.task.Name,
				})
			}

			if len(distinct) > sub.MaxConcurrentLots {
				conflicts = append(conflicts, Conflict{
					SubcontractorID:   sub.ID,
					SubcontractorName: sub.Name,
					Date:              d,
					Booked:            len(distinct),
					Capacity:          sub.MaxConcurrentLots,
					Jobs:              jobs,
				})
			}
		}
	}
	return conflicts
}

type booking struct {
	lot  *Lot
	task *Task
}

func bookingsFor(subID string, lots []*Lot) []booking {
	var out []booking
	for _, lot := range lots {
		if lot == nil {
			continue
		}
		for i := range lot.Tasks {
			t := &lot.Tasks[i]
			if t.SubcontractorID == subID && !t.IsComplete() && t.HasDates() {
				out = append(out, booking{lot: lot, task: t})
			}
		}
	}
	return out
}

// WhatIf recomputes conflicts with candidate replacing the lot of the same
// ID (or added when no such lot exists). The input slice is not modified.
func WhatIf(lots []*Lot, candidate *Lot, subs []Subcontractor, window Window, cal *calendar.WorkCalendar) []Conflict {
	merged := make([]*Lot, 0, len(lots)+1)
	replaced := false
	for _, lot := range lots {
		if lot != nil && candidate != nil && lot.ID == candidate.ID {
			merged = append(merged, candidate)
			replaced = true
			continue
		}
		merged = append(merged, lot)
	}
	if !replaced && candidate != nil {
		merged = append(merged, candidate)
	}
	return DetectConflicts(merged, subs, window, cal)
}

// ConflictsIntroduced returns the conflicts in after that have no matching
// subcontractor/date entry in before.
func ConflictsIntroduced(before, after []Conflict) []Conflict {
	type key struct {
		sub  string
		date civil.Date
	}
	seen := make(map[key]int, len(before))
	for _, c := range before {
		seen[key{c.SubcontractorID, c.Date}] = c.Booked
	}

	var introduced []Conflict
	for _, c := range after {
		booked, ok := seen[key{c.SubcontractorID, c.Date}]
		if !ok || c.Booked > booked {
			introduced = append(introduced, c)
		}
	}
	return introduced
}
