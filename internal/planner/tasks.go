package planner

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/scheduler"
)

// MarkStarted records that work on taskID began on date (today when unset).
// Starting an already started task only moves its actual start.
func (p *Planner) MarkStarted(ctx context.Context, lotID, taskID string, date civil.Date) (*scheduler.Lot, error) {
	if !calendar.IsSet(date) {
		date = p.Today()
	}

	lot, err := p.update(ctx, lotID, func(lot *scheduler.Lot) (*scheduler.Lot, error) {
		out := lot.Clone()
		task, err := openTask(out, taskID)
		if err != nil {
			return nil, err
		}
		task.ActualStart = date
		task.Status = scheduler.TaskInProgress
		out.Status = scheduler.LotStatusOf(out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info().Str("lot", lotID).Str("task", taskID).Stringer("date", date).Msg("task started")
	p.publish(events.TopicLot, events.TaskStatusChangedEvent{
		Lot:       lotID,
		TaskID:    taskID,
		Status:    scheduler.TaskInProgress.String(),
		Timestamp: p.now(),
	})
	return lot, nil
}

// MarkComplete records that taskID finished on date (today when unset). A
// completed task becomes a fixed anchor for every later cascade.
func (p *Planner) MarkComplete(ctx context.Context, lotID, taskID string, date civil.Date) (*scheduler.Lot, error) {
	if !calendar.IsSet(date) {
		date = p.Today()
	}

	lot, err := p.update(ctx, lotID, func(lot *scheduler.Lot) (*scheduler.Lot, error) {
		out := lot.Clone()
		task, err := openTask(out, taskID)
		if err != nil {
			return nil, err
		}
		if calendar.IsSet(task.ActualStart) && date.Before(task.ActualStart) {
			return nil, fmt.Errorf("task %q cannot finish on %s before it started on %s", taskID, date, task.ActualStart)
		}
		if !calendar.IsSet(task.ActualStart) {
			task.ActualStart = date
		}
		task.ActualEnd = date
		task.Status = scheduler.TaskComplete
		out.Status = scheduler.LotStatusOf(out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info().Str("lot", lotID).Str("task", taskID).Stringer("date", date).Msg("task complete")
	p.publish(events.TopicLot, events.TaskStatusChangedEvent{
		Lot:       lotID,
		TaskID:    taskID,
		Status:    scheduler.TaskComplete.String(),
		Timestamp: p.now(),
	})
	p.publishProgress(lot)
	return lot, nil
}

func openTask(lot *scheduler.Lot, taskID string) (*scheduler.Task, error) {
	task := lot.Task(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %q", scheduler.ErrTaskNotFound, taskID)
	}
	if task.IsComplete() {
		return nil, fmt.Errorf("%w: %q", scheduler.ErrTaskCompleted, taskID)
	}
	return task, nil
}

// SetMilestoneFlag sets or clears a manually tracked milestone such as a
// permit being issued.
func (p *Planner) SetMilestoneFlag(ctx context.Context, lotID, flag string, value bool) (*scheduler.Lot, error) {
	if flag == "" {
		return nil, errors.New("milestone flag is required")
	}

	lot, err := p.update(ctx, lotID, func(lot *scheduler.Lot) (*scheduler.Lot, error) {
		out := lot.Clone()
		if out.ManualMilestones == nil {
			out.ManualMilestones = make(map[string]bool)
		}
		out.ManualMilestones[flag] = value
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info().Str("lot", lotID).Str("flag", flag).Bool("value", value).Msg("milestone flag set")
	p.publishProgress(lot)
	return lot, nil
}

// RecordInspection stores an inspection result for one of the lot's tasks.
// An empty ID records a new inspection; an existing ID updates it.
func (p *Planner) RecordInspection(ctx context.Context, lotID string, insp scheduler.Inspection) (scheduler.Inspection, error) {
	switch insp.Result {
	case scheduler.InspectionPass, scheduler.InspectionFail, scheduler.InspectionPending:
	case "":
		insp.Result = scheduler.InspectionPending
	default:
		return scheduler.Inspection{}, fmt.Errorf("unknown inspection result %q", insp.Result)
	}
	if insp.ID == "" {
		insp.ID = uuid.NewString()
	}

	p.locks.Lock(lotID)
	defer p.locks.Unlock(lotID)

	lot, err := p.GetLot(ctx, lotID)
	if err != nil {
		return scheduler.Inspection{}, err
	}
	if lot.Task(insp.TaskID) == nil {
		return scheduler.Inspection{}, fmt.Errorf("%w: %q", scheduler.ErrTaskNotFound, insp.TaskID)
	}

	err = withRetry(ctx, p.breakers.Get("records"), p.retry, func(ctx context.Context) error {
		return p.store.SaveInspection(ctx, lotID, insp)
	})
	if err != nil {
		return scheduler.Inspection{}, fmt.Errorf("saving inspection for task %q: %w", insp.TaskID, err)
	}

	p.log.Info().
		Str("lot", lotID).
		Str("task", insp.TaskID).
		Str("inspection", insp.ID).
		Str("result", string(insp.Result)).
		Msg("inspection recorded")

	p.publish(events.TopicLot, events.InspectionRecordedEvent{
		Lot:          lotID,
		TaskID:       insp.TaskID,
		InspectionID: insp.ID,
		Result:       string(insp.Result),
		Timestamp:    p.now(),
	})
	return insp, nil
}
