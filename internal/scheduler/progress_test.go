package scheduler

import (
	"testing"

	"github.com/aristath/lotsched/internal/calendar"
)

func TestLotProgress(t *testing.T) {
	three := lotOf("lot-3",
		scheduled("a", TrackFoundation, 1, jan(1), 1),
		scheduled("b", TrackFoundation, 2, jan(2), 1),
		scheduled("c", TrackFoundation, 3, jan(3), 1),
	)

	tests := []struct {
		name     string
		complete int
		want     int
	}{
		{"none", 0, 0},
		{"one of three", 1, 33},
		{"two of three", 2, 67},
		{"all", 3, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := three.Clone()
			for i := 0; i < tt.complete; i++ {
				lot.Tasks[i] = completed(lot.Tasks[i])
			}
			if got := LotProgress(lot); got != tt.want {
				t.Errorf("LotProgress = %d, want %d", got, tt.want)
			}
		})
	}

	if got := LotProgress(&Lot{ID: "empty"}); got != 0 {
		t.Errorf("LotProgress(empty) = %d, want 0", got)
	}
}

func TestPredictedCompletionAndVariance(t *testing.T) {
	cal := calendar.Standard()
	lot := abLot()
	lot.TargetCompletionDate = jan(3)

	got, ok := PredictedCompletion(lot)
	if !ok || got != jan(5) {
		t.Errorf("PredictedCompletion = %s (ok=%v), want 2024-01-05", got, ok)
	}
	if v := ScheduleVariance(lot, cal); v != 2 {
		t.Errorf("ScheduleVariance = %d, want 2", v)
	}

	lot.TargetCompletionDate = jan(9)
	if v := ScheduleVariance(lot, cal); v != -2 {
		t.Errorf("ScheduleVariance = %d, want -2", v)
	}

	if _, ok := PredictedCompletion(&Lot{Tasks: []Task{{ID: "x"}}}); ok {
		t.Error("PredictedCompletion reported a date for an unscheduled lot")
	}
}

func TestSummarize(t *testing.T) {
	cal := calendar.Standard()
	lot := abLot()
	lot.TargetCompletionDate = jan(5)
	lot.Tasks[0] = completed(lot.Tasks[0])
	lot.Tasks[0].Name = "Slab"

	defs := []Milestone{{ID: "slab", Name: "Slab poured", Percent: 15, TriggerTask: "Slab"}}
	s := Summarize(lot, cal, defs, nil, jan(4))

	if s.Progress != 50 || s.Status != "in_progress" || s.VarianceDays != 0 {
		t.Errorf("summary = %+v", s)
	}
	if s.Milestone.ID != "slab" {
		t.Errorf("milestone = %s, want slab", s.Milestone.ID)
	}
	if s.Counts["complete"] != 1 || s.Counts["ready"] != 1 {
		t.Errorf("counts = %v", s.Counts)
	}
}
