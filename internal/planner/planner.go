// Package planner is the application service around the scheduling engine.
//
// Every mutating operation follows the same path: take the lot's writer lock,
// load the stored snapshot, run the engine, persist the result and publish an
// event. The engine itself stays pure; this package owns the side effects.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/persistence"
	"github.com/aristath/lotsched/internal/scheduler"
)

// ErrTemplateNotFound is returned when a lot names an unknown template.
var ErrTemplateNotFound = errors.New("template not found")

const defaultConcurrency = 8

// Options configures a Planner. Store and Calendar are required.
type Options struct {
	Store           persistence.Store
	Calendar        *calendar.WorkCalendar
	Milestones      []scheduler.Milestone
	Templates       map[string]scheduler.Template
	DefaultTemplate string
	Subcontractors  []scheduler.Subcontractor // Fallback when the store has none
	Bus             *events.EventBus          // Optional
	Logger          zerolog.Logger
	Retry           RetryConfig
	Concurrency     int              // Parallel lot loads during scans (default 8)
	Now             func() time.Time // Defaults to time.Now
}

// Planner runs engine operations against stored lots.
type Planner struct {
	store    persistence.Store
	locks    *scheduler.LotLockManager
	breakers *BreakerRegistry
	bus      *events.EventBus
	log      zerolog.Logger
	retry    RetryConfig
	limit    int
	now      func() time.Time

	mu              sync.RWMutex
	engine          *scheduler.Engine
	milestones      []scheduler.Milestone
	templates       map[string]scheduler.Template
	defaultTemplate string
	subs            []scheduler.Subcontractor
}

// New creates a Planner.
func New(opts Options) (*Planner, error) {
	if opts.Store == nil {
		return nil, errors.New("planner: store is required")
	}
	if opts.Calendar == nil {
		return nil, errors.New("planner: calendar is required")
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &Planner{
		store:    opts.Store,
		locks:    scheduler.NewLotLockManager(),
		breakers: NewBreakerRegistry(opts.Logger),
		bus:      opts.Bus,
		log:      opts.Logger.With().Str("component", "planner").Logger(),
		retry:    opts.Retry,
		limit:    opts.Concurrency,
		now:      opts.Now,
	}
	p.Reconfigure(opts.Calendar, opts.Milestones, opts.Templates, opts.DefaultTemplate, opts.Subcontractors)
	return p, nil
}

// Reconfigure swaps the calendar and reference data used by later operations.
// Operations already running keep the values they started with.
func (p *Planner) Reconfigure(cal *calendar.WorkCalendar, milestones []scheduler.Milestone, templates map[string]scheduler.Template, defaultTemplate string, subs []scheduler.Subcontractor) {
	tmpls := make(map[string]scheduler.Template, len(templates))
	for name, t := range templates {
		tmpls[name] = t
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine = scheduler.NewEngine(cal)
	p.milestones = append([]scheduler.Milestone(nil), milestones...)
	p.templates = tmpls
	p.defaultTemplate = defaultTemplate
	p.subs = append([]scheduler.Subcontractor(nil), subs...)
}

func (p *Planner) currentEngine() *scheduler.Engine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine
}

// Calendar returns the work calendar currently in use.
func (p *Planner) Calendar() *calendar.WorkCalendar {
	return p.currentEngine().Calendar()
}

// Milestones returns the milestone definitions currently in use.
func (p *Planner) Milestones() []scheduler.Milestone {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]scheduler.Milestone(nil), p.milestones...)
}

// TemplateNames lists the known templates in name order.
func (p *Planner) TemplateNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.templates))
	for name := range p.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Today returns the current civil date.
func (p *Planner) Today() civil.Date {
	return civil.DateOf(p.now())
}

// Subcontractors returns the stored subcontractor table, or the configured
// one when nothing has been stored yet.
func (p *Planner) Subcontractors(ctx context.Context) ([]scheduler.Subcontractor, error) {
	subs, err := p.store.ListSubcontractors(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subcontractors: %w", err)
	}
	if len(subs) > 0 {
		return subs, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]scheduler.Subcontractor(nil), p.subs...), nil
}

// SyncSubcontractors writes the configured subcontractor table to the store.
func (p *Planner) SyncSubcontractors(ctx context.Context) (int, error) {
	p.mu.RLock()
	subs := append([]scheduler.Subcontractor(nil), p.subs...)
	p.mu.RUnlock()

	for _, sub := range subs {
		err := withRetry(ctx, p.breakers.Get("records"), p.retry, func(ctx context.Context) error {
			return p.store.SaveSubcontractor(ctx, sub)
		})
		if err != nil {
			return 0, fmt.Errorf("saving subcontractor %q: %w", sub.ID, err)
		}
	}
	return len(subs), nil
}

// CreateLotRequest names the lot to create and the template to stamp it from.
type CreateLotRequest struct {
	Name      string
	Template  string // Empty selects the default template
	StartDate civil.Date
}

// CreateLot instantiates a lot from a template and stores it.
func (p *Planner) CreateLot(ctx context.Context, req CreateLotRequest) (*scheduler.Lot, error) {
	p.mu.RLock()
	name := req.Template
	if name == "" {
		name = p.defaultTemplate
	}
	tmpl, ok := p.templates[name]
	engine := p.engine
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	subs, err := p.Subcontractors(ctx)
	if err != nil {
		return nil, err
	}

	lot, err := scheduler.Instantiate(tmpl, scheduler.LotSpec{
		ID:        uuid.NewString(),
		Name:      req.Name,
		StartDate: req.StartDate,
	}, engine.Calendar(), subs)
	if err != nil {
		return nil, fmt.Errorf("instantiating lot %q from template %q: %w", req.Name, name, err)
	}

	if err := p.saveLot(ctx, lot); err != nil {
		return nil, err
	}

	p.log.Info().
		Str("lot", lot.ID).
		Str("name", lot.Name).
		Str("template", name).
		Int("tasks", len(lot.Tasks)).
		Stringer("target", lot.TargetCompletionDate).
		Msg("lot created")

	p.publish(events.TopicLot, events.LotCreatedEvent{
		ID:               lot.ID,
		Name:             lot.Name,
		Template:         name,
		Tasks:            len(lot.Tasks),
		StartDate:        lot.StartDate,
		TargetCompletion: lot.TargetCompletionDate,
		Timestamp:        p.now(),
	})
	return lot, nil
}

// GetLot loads a stored lot.
func (p *Planner) GetLot(ctx context.Context, lotID string) (*scheduler.Lot, error) {
	lot, err := p.store.GetLot(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("loading lot %q: %w", lotID, err)
	}
	return lot, nil
}

// ListLots lists stored lots without their tasks.
func (p *Planner) ListLots(ctx context.Context) ([]persistence.LotSummary, error) {
	return p.store.ListLots(ctx)
}

// DeleteLot removes a lot and everything recorded against it.
func (p *Planner) DeleteLot(ctx context.Context, lotID string) error {
	p.locks.Lock(lotID)
	defer p.locks.Unlock(lotID)

	if err := p.store.DeleteLot(ctx, lotID); err != nil {
		return fmt.Errorf("deleting lot %q: %w", lotID, err)
	}
	p.log.Info().Str("lot", lotID).Msg("lot deleted")
	return nil
}

// Report is a lot with its statuses derived for today and its records.
type Report struct {
	Lot         *scheduler.Lot             `json:"-"`
	Summary     scheduler.Summary          `json:"summary"`
	Achieved    []scheduler.Milestone      `json:"achieved"`
	Inspections []scheduler.Inspection     `json:"inspections"`
	Changes     []scheduler.ScheduleChange `json:"changes"`
}

// LotReport loads a lot and derives its task statuses, progress and
// milestones as of today.
func (p *Planner) LotReport(ctx context.Context, lotID string) (*Report, error) {
	lot, err := p.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	inspections, err := p.store.ListInspections(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing inspections for lot %q: %w", lotID, err)
	}
	changes, err := p.store.ListScheduleChanges(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing schedule changes for lot %q: %w", lotID, err)
	}

	today := p.Today()
	milestones := p.Milestones()
	derived := scheduler.WithDerivedStatus(lot, inspections, today)

	return &Report{
		Lot:         derived,
		Summary:     scheduler.Summarize(lot, p.Calendar(), milestones, inspections, today),
		Achieved:    scheduler.AchievedMilestones(milestones, lot),
		Inspections: inspections,
		Changes:     changes,
	}, nil
}

func (p *Planner) saveLot(ctx context.Context, lot *scheduler.Lot) error {
	err := withRetry(ctx, p.breakers.Get("lots"), p.retry, func(ctx context.Context) error {
		return p.store.SaveLot(ctx, lot)
	})
	if err != nil {
		return fmt.Errorf("saving lot %q: %w", lot.ID, err)
	}
	return nil
}

// update runs fn on the stored lot under the lot's writer lock and persists
// whatever fn returns. A nil result means nothing to store.
func (p *Planner) update(ctx context.Context, lotID string, fn func(lot *scheduler.Lot) (*scheduler.Lot, error)) (*scheduler.Lot, error) {
	p.locks.Lock(lotID)
	defer p.locks.Unlock(lotID)

	lot, err := p.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}

	updated, err := fn(lot)
	if err != nil || updated == nil {
		return lot, err
	}

	if err := p.saveLot(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Planner) publish(topic string, event events.Event) {
	if p.bus != nil {
		p.bus.Publish(topic, event)
	}
}

func (p *Planner) publishProgress(lot *scheduler.Lot) {
	if p.bus == nil {
		return
	}
	predicted, _ := scheduler.PredictedCompletion(lot)
	p.bus.Publish(events.TopicLot, events.LotProgressEvent{
		ID:                  lot.ID,
		Progress:            scheduler.LotProgress(lot),
		Milestone:           scheduler.CurrentMilestone(p.Milestones(), lot).Name,
		PredictedCompletion: predicted,
		VarianceDays:        scheduler.ScheduleVariance(lot, p.Calendar()),
		Timestamp:           p.now(),
	})
}
