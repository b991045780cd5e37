package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/lotsched/internal/scheduler"
)

// ScanConflicts loads every active lot and reports subcontractor
// over-bookings inside window.
func (p *Planner) ScanConflicts(ctx context.Context, window scheduler.Window) ([]scheduler.Conflict, int, error) {
	lots, err := p.loadActiveLots(ctx)
	if err != nil {
		return nil, 0, err
	}
	subs, err := p.Subcontractors(ctx)
	if err != nil {
		return nil, 0, err
	}
	return scheduler.DetectConflicts(lots, subs, window, p.Calendar()), len(lots), nil
}

// PreviewMoveConflicts reports the conflicts a previewed plan would add to
// the current picture inside window. Nothing is stored.
func (p *Planner) PreviewMoveConflicts(ctx context.Context, plan *scheduler.Plan, window scheduler.Window) ([]scheduler.Conflict, error) {
	if plan == nil || plan.Outcome != scheduler.OutcomeShifted {
		return nil, nil
	}

	lots, err := p.loadActiveLots(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := p.Subcontractors(ctx)
	if err != nil {
		return nil, err
	}

	var current *scheduler.Lot
	for _, lot := range lots {
		if lot.ID == plan.LotID {
			current = lot
			break
		}
	}
	if current == nil {
		if current, err = p.GetLot(ctx, plan.LotID); err != nil {
			return nil, err
		}
	}

	cal := p.Calendar()
	before := scheduler.DetectConflicts(lots, subs, window, cal)
	after := scheduler.WhatIf(lots, plan.Project(current), subs, window, cal)
	return scheduler.ConflictsIntroduced(before, after), nil
}

// loadActiveLots loads the lots that are not yet complete, with bounded
// parallelism. Results keep the store's lot order.
func (p *Planner) loadActiveLots(ctx context.Context) ([]*scheduler.Lot, error) {
	ids, err := p.store.ListLotIDs(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing active lots: %w", err)
	}

	lots := make([]*scheduler.Lot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i, id := range ids {
		g.Go(func() error {
			lot, err := p.store.GetLot(gctx, id)
			if err != nil {
				return fmt.Errorf("loading lot %q: %w", id, err)
			}
			lots[i] = lot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lots, nil
}
