package scheduler

import "testing"

func milestoneDefs() []Milestone {
	return []Milestone{
		{ID: "frame", Name: "Framed", Percent: 40, TriggerTask: "Framing"},
		{ID: "permit", Name: "Permit issued", Percent: 5, ManualFlag: "permit"},
		{ID: "dry", Name: "Dried in", Percent: 60, TriggerTasks: []string{"Roofing", "Windows"}},
	}
}

func milestoneLot() *Lot {
	return lotOf("lot-m",
		scheduled("frame", TrackStructure, 1, jan(1), 5),
		scheduled("roof", TrackExterior, 1, jan(8), 2),
		scheduled("windows", TrackExterior, 2, jan(10), 2),
	)
}

func named(lot *Lot) *Lot {
	lot.Task("frame").Name = "Framing"
	lot.Task("roof").Name = "Roofing"
	lot.Task("windows").Name = "Windows"
	return lot
}

func TestIsMilestoneAchieved(t *testing.T) {
	defs := milestoneDefs()

	tests := []struct {
		name     string
		mutate   func(*Lot)
		achieved map[string]bool
	}{
		{
			name:     "nothing done",
			mutate:   func(*Lot) {},
			achieved: map[string]bool{},
		},
		{
			name:     "manual flag",
			mutate:   func(l *Lot) { l.ManualMilestones["permit"] = true },
			achieved: map[string]bool{"permit": true},
		},
		{
			name:     "single trigger",
			mutate:   func(l *Lot) { *l.Task("frame") = completed(*l.Task("frame")) },
			achieved: map[string]bool{"frame": true},
		},
		{
			name:     "trigger set needs every task",
			mutate:   func(l *Lot) { *l.Task("roof") = completed(*l.Task("roof")) },
			achieved: map[string]bool{},
		},
		{
			name: "trigger set complete",
			mutate: func(l *Lot) {
				*l.Task("roof") = completed(*l.Task("roof"))
				*l.Task("windows") = completed(*l.Task("windows"))
			},
			achieved: map[string]bool{"dry": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := named(milestoneLot())
			tt.mutate(lot)
			for _, m := range defs {
				if got := IsMilestoneAchieved(m, lot); got != tt.achieved[m.ID] {
					t.Errorf("%s achieved = %v, want %v", m.ID, got, tt.achieved[m.ID])
				}
			}
		})
	}
}

func TestManualFlagTakesPrecedence(t *testing.T) {
	lot := named(milestoneLot())
	*lot.Task("frame") = completed(*lot.Task("frame"))

	m := Milestone{ID: "x", Percent: 10, ManualFlag: "signed_off", TriggerTask: "Framing"}
	if IsMilestoneAchieved(m, lot) {
		t.Error("manual milestone reached through its trigger task")
	}
}

func TestCurrentMilestone(t *testing.T) {
	defs := milestoneDefs()

	lot := named(milestoneLot())
	if got := CurrentMilestone(defs, lot); got.ID != NoMilestone.ID || got.Percent != 0 {
		t.Errorf("CurrentMilestone = %+v, want NoMilestone", got)
	}

	lot.ManualMilestones["permit"] = true
	*lot.Task("frame") = completed(*lot.Task("frame"))
	if got := CurrentMilestone(defs, lot); got.ID != "frame" {
		t.Errorf("CurrentMilestone = %s, want frame", got.ID)
	}

	achieved := AchievedMilestones(defs, lot)
	if len(achieved) != 2 || achieved[0].ID != "permit" || achieved[1].ID != "frame" {
		t.Errorf("AchievedMilestones = %+v", achieved)
	}
}
