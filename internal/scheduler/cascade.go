package scheduler

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
)

// Outcome classifies what a cascade preview proposes.
type Outcome int

const (
	OutcomeShifted             Outcome = iota // Dates change; the plan can be applied
	OutcomeNoOp                               // Target resolves to the current schedule
	OutcomeDependencyViolation                // Target precedes the earliest allowed start
)

func (o Outcome) String() string {
	switch o {
	case OutcomeShifted:
		return "shifted"
	case OutcomeNoOp:
		return "no_op"
	case OutcomeDependencyViolation:
		return "dependency_violation"
	}
	return "unknown"
}

// MarshalText renders the outcome by name in JSON reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// AffectedTask is one task whose dates a cascade changes.
type AffectedTask struct {
	TaskID   string     `json:"task_id"`
	Name     string     `json:"name"`
	OldStart civil.Date `json:"old_start"`
	NewStart civil.Date `json:"new_start"`
	OldEnd   civil.Date `json:"old_end"`
	NewEnd   civil.Date `json:"new_end"`
}

// Preview is the pure report of what a cascade would change.
type Preview struct {
	LotID               string         `json:"lot_id"`
	TaskID              string         `json:"task_id"`
	Outcome             Outcome        `json:"outcome"`
	Affected            []AffectedTask `json:"affected"`
	OldCompletion       civil.Date     `json:"old_completion"`
	NewCompletion       civil.Date     `json:"new_completion"`
	DependencyViolation bool           `json:"dependency_violation"`
	EarliestStart       *civil.Date    `json:"earliest_start,omitempty"`
	RequestedDate       civil.Date     `json:"requested_date"`
	NormalizedDate      civil.Date     `json:"normalized_date"`
	Shift               int            `json:"shift"`
}

// Plan is a Preview plus the proposed dates needed to apply it. A plan is
// bound to the exact lot snapshot it was computed from.
type Plan struct {
	Preview
	fingerprint uint64
	changes     map[string]span
}

type span struct {
	start civil.Date
	end   civil.Date
}

// ChangeNote carries the caller's bookkeeping for an applied cascade.
type ChangeNote struct {
	ID       string // Audit entry ID; generated by the caller
	Reason   string
	Notes    string
	Notified bool
	At       time.Time
}

// Engine runs previews and applies cascades under one work calendar.
// It holds no mutable state and never modifies the lots it is given.
type Engine struct {
	cal *calendar.WorkCalendar
}

// NewEngine creates an Engine for cal.
func NewEngine(cal *calendar.WorkCalendar) *Engine {
	return &Engine{cal: cal}
}

// Calendar returns the engine's work calendar.
func (e *Engine) Calendar() *calendar.WorkCalendar {
	return e.cal
}

// PreviewDelay proposes pushing taskID's start forward by days workdays.
func (e *Engine) PreviewDelay(lot *Lot, taskID string, days int) (*Plan, error) {
	if days < 0 {
		return nil, ErrNegativeDelay
	}
	task, err := e.movableTask(lot, taskID)
	if err != nil {
		return nil, err
	}
	target := e.cal.AddWorkDays(task.ScheduledStart, days)
	return e.plan(lot, task, target)
}

// PreviewReschedule proposes moving taskID to start on date (normalized
// forward onto a workday).
func (e *Engine) PreviewReschedule(lot *Lot, taskID string, date civil.Date) (*Plan, error) {
	task, err := e.movableTask(lot, taskID)
	if err != nil {
		return nil, err
	}
	return e.plan(lot, task, date)
}

func (e *Engine) movableTask(lot *Lot, taskID string) (*Task, error) {
	task := lot.Task(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	if task.IsComplete() {
		return nil, fmt.Errorf("%w: %q", ErrTaskCompleted, taskID)
	}
	if !task.HasDates() {
		return nil, fmt.Errorf("task %q has no scheduled dates", taskID)
	}
	return task, nil
}

// plan is the single propagation core behind every preview and apply.
func (e *Engine) plan(lot *Lot, task *Task, target civil.Date) (*Plan, error) {
	fp, err := Fingerprint(lot)
	if err != nil {
		return nil, err
	}

	normalized := e.cal.NextWorkDay(target)
	completion, _ := PredictedCompletion(lot)

	p := &Plan{
		Preview: Preview{
			LotID:          lot.ID,
			TaskID:         task.ID,
			Affected:       []AffectedTask{},
			OldCompletion:  completion,
			NewCompletion:  completion,
			RequestedDate:  target,
			NormalizedDate: normalized,
		},
		fingerprint: fp,
		changes:     make(map[string]span),
	}

	byID := make(map[string]*Task, len(lot.Tasks))
	for i := range lot.Tasks {
		byID[lot.Tasks[i].ID] = &lot.Tasks[i]
	}

	if earliest, ok := earliestAllowedStart(task, byID, e.cal); ok {
		p.EarliestStart = &earliest
		if normalized.Before(earliest) {
			p.Outcome = OutcomeDependencyViolation
			p.DependencyViolation = true
			return p, nil
		}
	}

	shift := e.cal.WorkdayOffset(task.ScheduledStart, normalized)
	if shift == 0 {
		p.Outcome = OutcomeNoOp
		return p, nil
	}
	p.Shift = shift

	work := lot.Clone()
	for _, i := range selectAffected(work, task) {
		t := &work.Tasks[i]
		if t.ID == task.ID {
			t.ScheduledStart = normalized
		} else {
			t.ScheduledStart = e.cal.ShiftWorkDays(t.ScheduledStart, shift)
		}
		t.ScheduledEnd = e.cal.ShiftWorkDays(t.ScheduledEnd, shift)
	}

	packFinalTrack(work, e.cal, func(t *Task) (civil.Date, bool) {
		if t.ID == task.ID {
			return normalized, true
		}
		return t.PinnedStart, calendar.IsSet(t.PinnedStart)
	})

	for i := range lot.Tasks {
		before, after := &lot.Tasks[i], &work.Tasks[i]
		if before.ScheduledStart == after.ScheduledStart && before.ScheduledEnd == after.ScheduledEnd {
			continue
		}
		p.Affected = append(p.Affected, AffectedTask{
			TaskID:   after.ID,
			Name:     after.Name,
			OldStart: before.ScheduledStart,
			NewStart: after.ScheduledStart,
			OldEnd:   before.ScheduledEnd,
			NewEnd:   after.ScheduledEnd,
		})
		p.changes[after.ID] = span{start: after.ScheduledStart, end: after.ScheduledEnd}
	}

	if len(p.Affected) == 0 {
		p.Outcome = OutcomeNoOp
		p.Shift = 0
		return p, nil
	}

	p.NewCompletion, _ = PredictedCompletion(work)
	p.Outcome = OutcomeShifted
	return p, nil
}

// selectAffected returns the indexes of tasks that move with moved: moved
// itself, plus every incomplete task that follows it on the same track or
// names it as a direct predecessor.
func selectAffected(lot *Lot, moved *Task) []int {
	var idx []int
	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		if t.ID == moved.ID {
			idx = append(idx, i)
			continue
		}
		if t.IsComplete() || !t.HasDates() {
			continue
		}
		sameTrackLater := t.Track == moved.Track && t.SortOrder > moved.SortOrder
		if sameTrackLater || t.DependsOn(moved.ID) {
			idx = append(idx, i)
		}
	}
	return idx
}

// packFinalTrack lays the final-track tasks end to end, starting the workday
// after the latest end among non-final tasks flagged BlocksFinal. Completed
// final tasks are never moved; packing resumes after them. floor may pin a
// task to start no earlier than a given date; the only gaps in a packed
// track sit in front of such a task.
func packFinalTrack(lot *Lot, cal *calendar.WorkCalendar, floor func(t *Task) (civil.Date, bool)) {
	finals := lot.TrackTasks(TrackFinal)
	if len(finals) == 0 {
		return
	}

	var (
		cursor     civil.Date
		haveCursor bool
	)
	if blockEnd, ok := latestBlockingEnd(lot); ok {
		cursor = cal.AddWorkDays(blockEnd, 1)
		haveCursor = true
	}

	for _, i := range finals {
		t := &lot.Tasks[i]

		if t.IsComplete() {
			if t.HasDates() {
				next := cal.AddWorkDays(t.ScheduledEnd, 1)
				if !haveCursor || next.After(cursor) {
					cursor = next
					haveCursor = true
				}
			}
			continue
		}

		start := cursor
		if !haveCursor {
			if !t.HasDates() {
				continue
			}
			start = t.ScheduledStart
		}
		if floor != nil {
			if pinned, ok := floor(t); ok {
				start = calendar.Max(start, pinned)
			}
		}

		t.ScheduledStart = cal.NextWorkDay(start)
		t.ScheduledEnd = cal.AddWorkDays(t.ScheduledStart, t.DurationDays-1)
		cursor = cal.AddWorkDays(t.ScheduledEnd, 1)
		haveCursor = true
	}
}

func latestBlockingEnd(lot *Lot) (civil.Date, bool) {
	var (
		latest civil.Date
		found  bool
	)
	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		if t.Track == TrackFinal || !t.BlocksFinal || !t.HasDates() {
			continue
		}
		if !found || t.ScheduledEnd.After(latest) {
			latest = t.ScheduledEnd
			found = true
		}
	}
	return latest, found
}

// Apply writes a shifted plan back onto a copy of lot. The plan must have been
// computed from this exact snapshot; otherwise ErrStaleSnapshot is returned
// and nothing is applied. Delay bookkeeping is stamped on the directly moved
// task only, and an audit entry is appended to the lot history. A directly
// moved final task keeps its requested start as PinnedStart.
func (e *Engine) Apply(lot *Lot, plan *Plan, note ChangeNote) (*Lot, *ScheduleChange, error) {
	if plan == nil || plan.Outcome != OutcomeShifted {
		return nil, nil, ErrPlanNotApplicable
	}
	if plan.LotID != lot.ID {
		return nil, nil, fmt.Errorf("%w: plan is for lot %q, got %q", ErrStaleSnapshot, plan.LotID, lot.ID)
	}

	fp, err := Fingerprint(lot)
	if err != nil {
		return nil, nil, err
	}
	if fp != plan.fingerprint {
		return nil, nil, ErrStaleSnapshot
	}

	original := lot.Task(plan.TaskID)
	if original == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrTaskNotFound, plan.TaskID)
	}

	out := lot.Clone()
	for i := range out.Tasks {
		t := &out.Tasks[i]
		if s, ok := plan.changes[t.ID]; ok {
			t.ScheduledStart = s.start
			t.ScheduledEnd = s.end
		}
	}

	moved := out.Task(plan.TaskID)
	if moved.Track == TrackFinal {
		moved.PinnedStart = plan.NormalizedDate
	}
	moved.Delay.Days += plan.Shift
	if moved.Delay.Days < 0 {
		moved.Delay.Days = 0
	}
	moved.Delay.Reason = note.Reason
	moved.Delay.Notes = note.Notes
	moved.Delay.LoggedAt = note.At

	change := ScheduleChange{
		ID:         note.ID,
		LotID:      lot.ID,
		TaskID:     plan.TaskID,
		OldStart:   original.ScheduledStart,
		NewStart:   moved.ScheduledStart,
		Shift:      plan.Shift,
		Reason:     note.Reason,
		Notes:      note.Notes,
		Notified:   note.Notified,
		RecordedAt: note.At,
	}
	out.History = append(out.History, change)

	return out, &change, nil
}

// Project returns a copy of lot with the plan's proposed dates written in and
// no bookkeeping. It is meant for what-if checks such as capacity previews.
func (p *Plan) Project(lot *Lot) *Lot {
	out := lot.Clone()
	for i := range out.Tasks {
		t := &out.Tasks[i]
		if s, ok := p.changes[t.ID]; ok {
			t.ScheduledStart = s.start
			t.ScheduledEnd = s.end
		}
	}
	return out
}

// AffectedWindow spans every date the preview touches, old and new.
func (p *Preview) AffectedWindow() Window {
	var w Window
	for i, a := range p.Affected {
		from := calendar.Min(a.OldStart, a.NewStart)
		to := calendar.Max(a.OldEnd, a.NewEnd)
		if i == 0 || from.Before(w.From) {
			w.From = from
		}
		if i == 0 || to.After(w.To) {
			w.To = to
		}
	}
	return w
}
