package scheduler

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// TemplateTask describes one task of a lot template.
type TemplateTask struct {
	ID                 string       `yaml:"id" json:"id"`
	Name               string       `yaml:"name" json:"name"`
	Trade              string       `yaml:"trade" json:"trade"`
	DurationDays       int          `yaml:"duration" json:"duration"`
	Track              Track        `yaml:"track" json:"track"`
	SortOrder          int          `yaml:"sort_order" json:"sort_order"`
	Dependencies       []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	BlocksFinal        bool         `yaml:"blocks_final,omitempty" json:"blocks_final,omitempty"`
	IsCriticalPath     bool         `yaml:"critical_path,omitempty" json:"critical_path,omitempty"`
	RequiresInspection bool         `yaml:"requires_inspection,omitempty" json:"requires_inspection,omitempty"`
}

// Template is an ordered task list that every new lot is stamped from.
type Template struct {
	Name  string         `yaml:"name" json:"name"`
	Tasks []TemplateTask `yaml:"tasks" json:"tasks"`
}

// Subcontractor is a trade partner with a cap on concurrently booked lots.
type Subcontractor struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Trade             string `json:"trade" yaml:"trade"`
	MaxConcurrentLots int    `json:"max_concurrent_lots" yaml:"max_concurrent_lots"` // <= 0 means unlimited
}

// LotSpec carries the identity and start date of a lot being created.
type LotSpec struct {
	ID        string
	Name      string
	StartDate civil.Date
}

// Instantiate stamps a fully dated lot from tmpl. Each task starts at the
// later of the lot start and its earliest allowed start, normalized onto a
// workday, and ends (duration-1) workdays later. Subcontractors are matched
// by trade on a best-effort basis. Any template defect is reported as a
// ConfigurationError and no lot is returned.
func Instantiate(tmpl Template, spec LotSpec, cal *calendar.WorkCalendar, subs []Subcontractor) (*Lot, error) {
	if !calendar.IsSet(spec.StartDate) {
		return nil, configErrorf("", "lot start date is required")
	}

	tasks := make([]Task, 0, len(tmpl.Tasks))
	for i, tt := range tmpl.Tasks {
		task, err := taskFromTemplate(tt, i)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	order, err := ValidateGraph(tasks)
	if err != nil {
		return nil, err
	}

	start := cal.NextWorkDay(spec.StartDate)

	byID := make(map[string]*Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	for _, id := range order {
		task := byID[id]
		taskStart := start
		if earliest, ok := earliestAllowedStart(task, byID, cal); ok {
			taskStart = calendar.Max(taskStart, earliest)
		}
		task.ScheduledStart = cal.NextWorkDay(taskStart)
		task.ScheduledEnd = cal.AddWorkDays(task.ScheduledStart, task.DurationDays-1)
		task.SubcontractorID = assignSubcontractor(task.Trade, subs)
	}

	lot := &Lot{
		ID:                   spec.ID,
		Name:                 spec.Name,
		StartDate:            start,
		TargetCompletionDate: cal.AddWorkDays(start, cal.BuildDays()),
		ManualMilestones:     make(map[string]bool),
		Status:               LotNotStarted,
		Tasks:                tasks,
	}

	// Dependency-derived starts are floors; packing only pushes final tasks later.
	packFinalTrack(lot, cal, func(t *Task) (civil.Date, bool) {
		return t.ScheduledStart, true
	})

	return lot, nil
}

func taskFromTemplate(tt TemplateTask, index int) (Task, error) {
	if tt.DurationDays < 1 {
		return Task{}, configErrorf(tt.ID, "duration must be at least 1 workday, got %d", tt.DurationDays)
	}

	track := tt.Track
	if track == "" {
		track = TrackStructure
	}
	if !track.Valid() {
		return Task{}, configErrorf(tt.ID, "unknown track %q", tt.Track)
	}

	deps := make([]Dependency, 0, len(tt.Dependencies))
	for _, dep := range tt.Dependencies {
		if dep.Relation == "" {
			dep.Relation = FinishToStart
		}
		if !dep.Relation.Valid() {
			return Task{}, configErrorf(tt.ID, "unknown relation %q on dependency %q", dep.Relation, dep.PredecessorID)
		}
		if dep.LagDays < 0 {
			return Task{}, configErrorf(tt.ID, "negative lag %d on dependency %q", dep.LagDays, dep.PredecessorID)
		}
		deps = append(deps, dep)
	}

	sortOrder := tt.SortOrder
	if sortOrder == 0 {
		sortOrder = index + 1
	}

	return Task{
		ID:                 tt.ID,
		Name:               tt.Name,
		Trade:              tt.Trade,
		DurationDays:       tt.DurationDays,
		Track:              track,
		SortOrder:          sortOrder,
		Status:             TaskPending,
		Dependencies:       deps,
		BlocksFinal:        tt.BlocksFinal,
		IsCriticalPath:     tt.IsCriticalPath,
		RequiresInspection: tt.RequiresInspection,
	}, nil
}

// assignSubcontractor picks the first subcontractor (by ID) whose trade
// matches. It reserves nothing; capacity is checked separately.
func assignSubcontractor(trade string, subs []Subcontractor) string {
	if trade == "" {
		return ""
	}

	candidates := make([]Subcontractor, 0, len(subs))
	for _, s := range subs {
		if s.Trade == trade {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0].ID
}
