package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/scheduler"
)

// ErrScanInProgress is returned by ScanOnce when the previous scan is still
// running.
var ErrScanInProgress = errors.New("conflict scan already in progress")

const defaultWindowDays = 30

// Monitor runs capacity conflict scans on a cron schedule and publishes the
// results on the event bus.
type Monitor struct {
	planner *Planner
	bus     *events.EventBus
	log     zerolog.Logger
	parser  cron.Parser

	mu         sync.Mutex
	spec       string
	windowDays int
	c          *cron.Cron
	entry      cron.EntryID
	runCtx     context.Context

	scanning atomic.Bool
}

// NewMonitor creates a monitor for spec, a standard five-field cron
// expression or a descriptor such as "@every 1h".
func NewMonitor(p *Planner, bus *events.EventBus, spec string, windowDays int, log zerolog.Logger) (*Monitor, error) {
	m := &Monitor{
		planner: p,
		bus:     bus,
		log:     log.With().Str("component", "monitor").Logger(),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	if err := m.validate(spec); err != nil {
		return nil, err
	}
	m.spec = strings.TrimSpace(spec)
	m.windowDays = windowOrDefault(windowDays)
	return m, nil
}

func (m *Monitor) validate(spec string) error {
	if _, err := m.parser.Parse(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", spec, err)
	}
	return nil
}

func windowOrDefault(days int) int {
	if days <= 0 {
		return defaultWindowDays
	}
	return days
}

// Run schedules scans until ctx is cancelled, then waits for a running scan
// to finish.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.c != nil {
		m.mu.Unlock()
		return errors.New("monitor already running")
	}
	m.c = cron.New(cron.WithParser(m.parser), cron.WithLocation(time.Local))
	m.runCtx = ctx
	if err := m.addEntryLocked(); err != nil {
		m.c = nil
		m.mu.Unlock()
		return err
	}
	m.c.Start()
	m.log.Info().Str("schedule", m.spec).Int("window_days", m.windowDays).Msg("monitor started")
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	c := m.c
	m.c = nil
	m.mu.Unlock()

	<-c.Stop().Done()
	m.log.Info().Msg("monitor stopped")
	return nil
}

func (m *Monitor) addEntryLocked() error {
	ctx := m.runCtx
	id, err := m.c.AddFunc(m.spec, func() {
		if _, err := m.ScanOnce(ctx); err != nil && !errors.Is(err, ErrScanInProgress) && ctx.Err() == nil {
			m.log.Error().Err(err).Msg("conflict scan failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling conflict scan: %w", err)
	}
	m.entry = id
	return nil
}

// SetSchedule replaces the schedule and scan window. A running monitor picks
// the new schedule up immediately.
func (m *Monitor) SetSchedule(spec string, windowDays int) error {
	if err := m.validate(spec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.spec = strings.TrimSpace(spec)
	m.windowDays = windowOrDefault(windowDays)
	if m.c == nil {
		return nil
	}

	m.c.Remove(m.entry)
	if err := m.addEntryLocked(); err != nil {
		return err
	}
	m.log.Info().Str("schedule", m.spec).Int("window_days", m.windowDays).Msg("monitor rescheduled")
	return nil
}

// Window returns the scan window starting today.
func (m *Monitor) Window() scheduler.Window {
	m.mu.Lock()
	days := m.windowDays
	m.mu.Unlock()

	today := m.planner.Today()
	return scheduler.Window{From: today, To: today.AddDays(days)}
}

// ScanOnce runs a single conflict scan and publishes one event per conflict
// followed by a summary event. Overlapping scans are refused.
func (m *Monitor) ScanOnce(ctx context.Context) ([]scheduler.Conflict, error) {
	if !m.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer m.scanning.Store(false)

	started := time.Now()
	window := m.Window()

	conflicts, lots, err := m.planner.ScanConflicts(ctx, window)
	if err != nil {
		return nil, err
	}

	now := m.planner.now()
	for _, c := range conflicts {
		m.log.Warn().
			Str("subcontractor", c.SubcontractorID).
			Stringer("date", c.Date).
			Int("booked", c.Booked).
			Int("capacity", c.Capacity).
			Msg("subcontractor over capacity")
		m.publish(events.ConflictDetectedEvent{
			SubcontractorID: c.SubcontractorID,
			Date:            c.Date,
			Booked:          c.Booked,
			Capacity:        c.Capacity,
			Lots:            conflictLots(c),
			Timestamp:       now,
		})
	}

	elapsed := time.Since(started)
	m.log.Info().
		Int("lots", lots).
		Int("conflicts", len(conflicts)).
		Dur("took", elapsed).
		Msg("conflict scan finished")
	m.publish(events.ConflictScanFinishedEvent{
		Lots:      lots,
		Conflicts: len(conflicts),
		From:      window.From,
		To:        window.To,
		Duration:  elapsed,
		Timestamp: now,
	})
	return conflicts, nil
}

func (m *Monitor) publish(event events.Event) {
	if m.bus != nil {
		m.bus.Publish(events.TopicCapacity, event)
	}
}

// conflictLots lists the distinct lots of a conflict in job order.
func conflictLots(c scheduler.Conflict) []string {
	seen := make(map[string]bool, len(c.Jobs))
	var lots []string
	for _, job := range c.Jobs {
		if !seen[job.LotID] {
			seen[job.LotID] = true
			lots = append(lots, job.LotID)
		}
	}
	return lots
}
