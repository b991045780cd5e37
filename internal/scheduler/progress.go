package scheduler

import (
	"math"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// LotProgress returns the percentage of complete tasks, rounded to the
// nearest whole percent. A lot with no tasks, or none complete, is at 0.
func LotProgress(lot *Lot) int {
	if len(lot.Tasks) == 0 {
		return 0
	}

	complete := 0
	for i := range lot.Tasks {
		if lot.Tasks[i].IsComplete() {
			complete++
		}
	}
	return int(math.Round(float64(complete) * 100 / float64(len(lot.Tasks))))
}

// PredictedCompletion returns the latest scheduled end across the lot's
// tasks. ok is false when no task is scheduled.
func PredictedCompletion(lot *Lot) (civil.Date, bool) {
	var (
		latest civil.Date
		found  bool
	)
	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		if !calendar.IsSet(t.ScheduledEnd) {
			continue
		}
		if !found || t.ScheduledEnd.After(latest) {
			latest = t.ScheduledEnd
			found = true
		}
	}
	return latest, found
}

// ScheduleVariance returns the signed number of workdays the predicted
// completion lies after the lot's target completion. Negative means ahead.
func ScheduleVariance(lot *Lot, cal *calendar.WorkCalendar) int {
	predicted, ok := PredictedCompletion(lot)
	if !ok || !calendar.IsSet(lot.TargetCompletionDate) {
		return 0
	}
	return cal.WorkdayOffset(lot.TargetCompletionDate, predicted)
}

// Summary is a read model of one lot for dashboards and the event bus.
type Summary struct {
	LotID               string         `json:"lot_id"`
	Name                string         `json:"name"`
	Status              string         `json:"status"`
	Progress            int            `json:"progress"`
	PredictedCompletion civil.Date     `json:"predicted_completion"`
	TargetCompletion    civil.Date     `json:"target_completion"`
	VarianceDays        int            `json:"variance_days"`
	Milestone           Milestone      `json:"milestone"`
	Counts              map[string]int `json:"counts"`
}

// Summarize builds a Summary of lot as of today.
func Summarize(lot *Lot, cal *calendar.WorkCalendar, milestones []Milestone, inspections []Inspection, today civil.Date) Summary {
	predicted, _ := PredictedCompletion(lot)
	counts := make(map[string]int)
	for _, s := range DeriveAll(lot, inspections, today) {
		counts[s.String()]++
	}

	return Summary{
		LotID:               lot.ID,
		Name:                lot.Name,
		Status:              LotStatusOf(lot).String(),
		Progress:            LotProgress(lot),
		PredictedCompletion: predicted,
		TargetCompletion:    lot.TargetCompletionDate,
		VarianceDays:        ScheduleVariance(lot, cal),
		Milestone:           CurrentMilestone(milestones, lot),
		Counts:              counts,
	}
}
