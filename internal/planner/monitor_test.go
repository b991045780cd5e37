package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/logx"
)

func TestNewMonitorValidatesSchedule(t *testing.T) {
	f := newFixture(t, nil)

	_, err := NewMonitor(f.planner, f.bus, "every tuesday", 30, logx.Nop())
	assert.Error(t, err)

	m, err := NewMonitor(f.planner, f.bus, "@every 1h", 0, logx.Nop())
	require.NoError(t, err)
	w := m.Window()
	assert.Equal(t, jan(1), w.From)
	assert.Equal(t, jan(31), w.To)
}

func TestMonitorScanOncePublishes(t *testing.T) {
	f := newFixture(t, nil)
	f.createLot(t, "Lot A", jan(1))
	f.createLot(t, "Lot B", jan(1))
	sub := f.bus.Subscribe(events.TopicCapacity, 8)

	m, err := NewMonitor(f.planner, f.bus, "0 6 * * 1-5", 14, logx.Nop())
	require.NoError(t, err)

	conflicts, err := m.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, conflicts, 2)

	for i := 0; i < 2; i++ {
		ev := receive(t, sub)
		detected, ok := ev.(events.ConflictDetectedEvent)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, "acme", detected.SubcontractorID)
		assert.Len(t, detected.Lots, 2)
	}

	ev := receive(t, sub)
	finished, ok := ev.(events.ConflictScanFinishedEvent)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, 2, finished.Lots)
	assert.Equal(t, 2, finished.Conflicts)
	assert.Equal(t, jan(1), finished.From)
	assert.Equal(t, jan(15), finished.To)
}

func TestMonitorRefusesOverlappingScans(t *testing.T) {
	f := newFixture(t, nil)
	m, err := NewMonitor(f.planner, f.bus, "@hourly", 7, logx.Nop())
	require.NoError(t, err)

	m.scanning.Store(true)
	_, err = m.ScanOnce(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)

	m.scanning.Store(false)
	_, err = m.ScanOnce(context.Background())
	assert.NoError(t, err)
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	m, err := NewMonitor(f.planner, f.bus, "@every 1h", 7, logx.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// SetSchedule swaps the entry whether or not Run has started yet.
	require.Eventually(t, func() bool {
		return m.SetSchedule("@every 2h", 10) == nil
	}, time.Second, 10*time.Millisecond)
	assert.Error(t, m.SetSchedule("not a schedule", 10))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}

	w := m.Window()
	assert.Equal(t, jan(11), w.To)
}
