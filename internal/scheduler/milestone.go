package scheduler

import "sort"

// Milestone is a named point of construction progress. Exactly one of
// ManualFlag, TriggerTasks or TriggerTask decides whether it is reached.
type Milestone struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Percent      int      `json:"percent" yaml:"percent"`
	TriggerTask  string   `json:"trigger_task,omitempty" yaml:"trigger_task,omitempty"`
	TriggerTasks []string `json:"trigger_tasks,omitempty" yaml:"trigger_tasks,omitempty"`
	ManualFlag   string   `json:"manual_flag,omitempty" yaml:"manual_flag,omitempty"`
}

// NoMilestone is returned when a lot has reached nothing yet.
var NoMilestone = Milestone{ID: "none", Name: "Not Started", Percent: 0}

// IsMilestoneAchieved reports whether the lot has reached m.
func IsMilestoneAchieved(m Milestone, lot *Lot) bool {
	switch {
	case m.ManualFlag != "":
		return lot.ManualMilestones[m.ManualFlag]
	case len(m.TriggerTasks) > 0:
		for _, name := range m.TriggerTasks {
			if !taskNamedComplete(lot, name) {
				return false
			}
		}
		return true
	case m.TriggerTask != "":
		return taskNamedComplete(lot, m.TriggerTask)
	}
	return false
}

func taskNamedComplete(lot *Lot, name string) bool {
	t := lot.TaskByName(name)
	return t != nil && t.IsComplete()
}

// AchievedMilestones returns the reached milestones in ascending percent order.
func AchievedMilestones(defs []Milestone, lot *Lot) []Milestone {
	var achieved []Milestone
	for _, m := range defs {
		if IsMilestoneAchieved(m, lot) {
			achieved = append(achieved, m)
		}
	}
	sort.SliceStable(achieved, func(i, j int) bool {
		return achieved[i].Percent < achieved[j].Percent
	})
	return achieved
}

// CurrentMilestone returns the achieved milestone with the highest percent,
// or NoMilestone.
func CurrentMilestone(defs []Milestone, lot *Lot) Milestone {
	current := NoMilestone
	found := false
	for _, m := range defs {
		if !IsMilestoneAchieved(m, lot) {
			continue
		}
		if !found || m.Percent > current.Percent {
			current = m
			found = true
		}
	}
	return current
}
