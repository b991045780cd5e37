package events

import (
	"time"

	"cloud.google.com/go/civil"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	LotID() string // Empty for events that span lots
}

// Topic constants
const (
	TopicLot      = "lot"
	TopicSchedule = "schedule"
	TopicCapacity = "capacity"
)

// Event type constants
const (
	EventTypeLotCreated           = "lot.created"
	EventTypeLotProgress          = "lot.progress"
	EventTypeTaskStatusChanged    = "lot.task_status"
	EventTypeInspectionRecorded   = "lot.inspection"
	EventTypeScheduleShifted      = "schedule.shifted"
	EventTypeConflictDetected     = "capacity.conflict"
	EventTypeConflictScanFinished = "capacity.scan_finished"
)

// LotCreatedEvent is published when a lot is instantiated from a template.
type LotCreatedEvent struct {
	ID               string
	Name             string
	Template         string
	Tasks            int
	StartDate        civil.Date
	TargetCompletion civil.Date
	Timestamp        time.Time
}

func (e LotCreatedEvent) EventType() string { return EventTypeLotCreated }
func (e LotCreatedEvent) LotID() string     { return e.ID }

// LotProgressEvent is published when a lot's completion or forecast changes.
type LotProgressEvent struct {
	ID                  string
	Progress            int // Percent of tasks complete
	Milestone           string
	PredictedCompletion civil.Date
	VarianceDays        int
	Timestamp           time.Time
}

func (e LotProgressEvent) EventType() string { return EventTypeLotProgress }
func (e LotProgressEvent) LotID() string     { return e.ID }

// TaskStatusChangedEvent is published when a task is started or completed.
type TaskStatusChangedEvent struct {
	Lot       string
	TaskID    string
	Status    string
	Timestamp time.Time
}

func (e TaskStatusChangedEvent) EventType() string { return EventTypeTaskStatusChanged }
func (e TaskStatusChangedEvent) LotID() string     { return e.Lot }

// InspectionRecordedEvent is published when an inspection result is stored.
type InspectionRecordedEvent struct {
	Lot          string
	TaskID       string
	InspectionID string
	Result       string
	Timestamp    time.Time
}

func (e InspectionRecordedEvent) EventType() string { return EventTypeInspectionRecorded }
func (e InspectionRecordedEvent) LotID() string     { return e.Lot }

// ScheduleShiftedEvent is published after a cascade is applied and stored.
type ScheduleShiftedEvent struct {
	Lot           string
	TaskID        string
	ChangeID      string
	Shift         int
	Affected      int
	OldCompletion civil.Date
	NewCompletion civil.Date
	Reason        string
	Timestamp     time.Time
}

func (e ScheduleShiftedEvent) EventType() string { return EventTypeScheduleShifted }
func (e ScheduleShiftedEvent) LotID() string     { return e.Lot }

// ConflictDetectedEvent is published for each over-booked subcontractor day
// found by a capacity scan.
type ConflictDetectedEvent struct {
	SubcontractorID string
	Date            civil.Date
	Booked          int
	Capacity        int
	Lots            []string
	Timestamp       time.Time
}

func (e ConflictDetectedEvent) EventType() string { return EventTypeConflictDetected }
func (e ConflictDetectedEvent) LotID() string     { return "" }

// ConflictScanFinishedEvent summarizes one capacity scan.
type ConflictScanFinishedEvent struct {
	Lots      int
	Conflicts int
	From      civil.Date
	To        civil.Date
	Duration  time.Duration
	Timestamp time.Time
}

func (e ConflictScanFinishedEvent) EventType() string { return EventTypeConflictScanFinished }
func (e ConflictScanFinishedEvent) LotID() string     { return "" }
