package planner

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/scheduler"
)

// ChangeRequest carries the reason recorded with an applied cascade.
type ChangeRequest struct {
	Reason   string
	Notes    string
	Notified bool
}

// ApplyResult is the outcome of an apply call. Change is nil unless the
// schedule actually moved.
type ApplyResult struct {
	Plan   *scheduler.Plan
	Lot    *scheduler.Lot
	Change *scheduler.ScheduleChange
}

// Applied reports whether the call changed the stored schedule.
func (r *ApplyResult) Applied() bool {
	return r != nil && r.Change != nil
}

// PreviewDelay reports what delaying taskID by days workdays would change.
// Nothing is stored.
func (p *Planner) PreviewDelay(ctx context.Context, lotID, taskID string, days int) (*scheduler.Plan, error) {
	lot, err := p.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return p.currentEngine().PreviewDelay(lot, taskID, days)
}

// PreviewReschedule reports what moving taskID to start on date would change.
// Nothing is stored.
func (p *Planner) PreviewReschedule(ctx context.Context, lotID, taskID string, date civil.Date) (*scheduler.Plan, error) {
	lot, err := p.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return p.currentEngine().PreviewReschedule(lot, taskID, date)
}

// ApplyDelay delays taskID by days workdays and stores the cascade.
func (p *Planner) ApplyDelay(ctx context.Context, lotID, taskID string, days int, req ChangeRequest) (*ApplyResult, error) {
	return p.applyFresh(ctx, lotID, req, func(engine *scheduler.Engine, lot *scheduler.Lot) (*scheduler.Plan, error) {
		return engine.PreviewDelay(lot, taskID, days)
	})
}

// ApplyReschedule moves taskID to start on date and stores the cascade.
func (p *Planner) ApplyReschedule(ctx context.Context, lotID, taskID string, date civil.Date, req ChangeRequest) (*ApplyResult, error) {
	return p.applyFresh(ctx, lotID, req, func(engine *scheduler.Engine, lot *scheduler.Lot) (*scheduler.Plan, error) {
		return engine.PreviewReschedule(lot, taskID, date)
	})
}

// ApplyPlan stores a plan computed earlier by a preview. It fails with
// scheduler.ErrStaleSnapshot if the lot changed since the preview.
func (p *Planner) ApplyPlan(ctx context.Context, plan *scheduler.Plan, req ChangeRequest) (*ApplyResult, error) {
	if plan == nil {
		return nil, scheduler.ErrPlanNotApplicable
	}
	return p.applyFresh(ctx, plan.LotID, req, func(*scheduler.Engine, *scheduler.Lot) (*scheduler.Plan, error) {
		return plan, nil
	})
}

func (p *Planner) applyFresh(ctx context.Context, lotID string, req ChangeRequest, plan func(*scheduler.Engine, *scheduler.Lot) (*scheduler.Plan, error)) (*ApplyResult, error) {
	engine := p.currentEngine()
	result := &ApplyResult{}

	lot, err := p.update(ctx, lotID, func(lot *scheduler.Lot) (*scheduler.Lot, error) {
		pl, err := plan(engine, lot)
		if err != nil {
			return nil, err
		}
		result.Plan = pl
		if pl.Outcome != scheduler.OutcomeShifted {
			return nil, nil
		}

		updated, change, err := engine.Apply(lot, pl, scheduler.ChangeNote{
			ID:       uuid.NewString(),
			Reason:   req.Reason,
			Notes:    req.Notes,
			Notified: req.Notified,
			At:       p.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("applying cascade to lot %q: %w", lotID, err)
		}
		result.Change = change
		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	result.Lot = lot

	if !result.Applied() {
		p.log.Debug().
			Str("lot", lotID).
			Str("task", result.Plan.TaskID).
			Stringer("outcome", result.Plan.Outcome).
			Msg("cascade not applied")
		return result, nil
	}

	pl := result.Plan
	p.log.Info().
		Str("lot", lotID).
		Str("task", pl.TaskID).
		Int("shift", pl.Shift).
		Int("affected", len(pl.Affected)).
		Stringer("old_completion", pl.OldCompletion).
		Stringer("new_completion", pl.NewCompletion).
		Str("reason", req.Reason).
		Msg("schedule shifted")

	p.publish(events.TopicSchedule, events.ScheduleShiftedEvent{
		Lot:           lotID,
		TaskID:        pl.TaskID,
		ChangeID:      result.Change.ID,
		Shift:         pl.Shift,
		Affected:      len(pl.Affected),
		OldCompletion: pl.OldCompletion,
		NewCompletion: pl.NewCompletion,
		Reason:        req.Reason,
		Timestamp:     p.now(),
	})
	p.publishProgress(lot)
	return result, nil
}

// MarkNotified flags a schedule change as communicated to the trades.
func (p *Planner) MarkNotified(ctx context.Context, changeID string) error {
	return withRetry(ctx, p.breakers.Get("records"), p.retry, func(ctx context.Context) error {
		return p.store.MarkNotified(ctx, changeID)
	})
}
