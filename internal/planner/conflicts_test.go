package planner

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/lotsched/internal/scheduler"
)

func january() scheduler.Window {
	return scheduler.Window{From: jan(1), To: civil.Date{Year: 2024, Month: time.February, Day: 29}}
}

func TestScanConflicts(t *testing.T) {
	f := newFixture(t, nil)
	a := f.createLot(t, "Lot A", jan(1))
	b := f.createLot(t, "Lot B", jan(1))

	conflicts, lots, err := f.planner.ScanConflicts(context.Background(), january())
	require.NoError(t, err)
	assert.Equal(t, 2, lots)
	require.Len(t, conflicts, 2)

	for i, day := range []civil.Date{jan(4), jan(5)} {
		c := conflicts[i]
		assert.Equal(t, "acme", c.SubcontractorID)
		assert.Equal(t, day, c.Date)
		assert.Equal(t, 2, c.Booked)
		assert.Equal(t, 1, c.Capacity)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, conflictLots(c))
	}
}

func TestScanConflictsSkipsCompleteLots(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.createLot(t, "Lot A", jan(1))
	b := f.createLot(t, "Lot B", jan(1))

	for _, id := range []string{"pour", "frame", "clean"} {
		_, err := f.planner.MarkComplete(ctx, b.ID, id, jan(1))
		require.NoError(t, err)
	}

	conflicts, lots, err := f.planner.ScanConflicts(ctx, january())
	require.NoError(t, err)
	assert.Equal(t, 1, lots)
	assert.Empty(t, conflicts)
}

func TestPreviewMoveConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createLot(t, "Lot A", jan(1))
	f.createLot(t, "Lot B", jan(15)) // framing on the 18th and 19th

	before, _, err := f.planner.ScanConflicts(ctx, january())
	require.NoError(t, err)
	require.Empty(t, before)

	plan, err := f.planner.PreviewDelay(ctx, a.ID, "pour", 10)
	require.NoError(t, err)
	require.Equal(t, scheduler.OutcomeShifted, plan.Outcome)

	introduced, err := f.planner.PreviewMoveConflicts(ctx, plan, january())
	require.NoError(t, err)
	require.Len(t, introduced, 2)
	assert.Equal(t, jan(18), introduced[0].Date)
	assert.Equal(t, jan(19), introduced[1].Date)

	// Previewing stores nothing.
	after, _, err := f.planner.ScanConflicts(ctx, january())
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestPreviewMoveConflictsNoOp(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createLot(t, "Lot A", jan(1))

	plan, err := f.planner.PreviewDelay(ctx, a.ID, "pour", 0)
	require.NoError(t, err)

	introduced, err := f.planner.PreviewMoveConflicts(ctx, plan, january())
	require.NoError(t, err)
	assert.Empty(t, introduced)
}
