package tui

import (
	"context"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/scheduler"
)

// Backend is the part of the planner the board needs.
type Backend interface {
	LotReport(ctx context.Context, lotID string) (*planner.Report, error)
	PreviewDelay(ctx context.Context, lotID, taskID string, days int) (*scheduler.Plan, error)
	PreviewReschedule(ctx context.Context, lotID, taskID string, date civil.Date) (*scheduler.Plan, error)
	PreviewMoveConflicts(ctx context.Context, plan *scheduler.Plan, window scheduler.Window) ([]scheduler.Conflict, error)
	ApplyPlan(ctx context.Context, plan *scheduler.Plan, req planner.ChangeRequest) (*planner.ApplyResult, error)
}

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTasks PaneID = iota
	PaneProgress
)

const paneCount = 2

// reportMsg carries a freshly loaded lot report.
type reportMsg struct {
	report *planner.Report
	err    error
}

// Model is the root Bubble Tea model for the schedule board.
type Model struct {
	ctx            context.Context
	backend        Backend
	lotID          string
	taskPane       TaskPaneModel
	progressPane   ProgressPaneModel
	reschedulePane ReschedulePaneModel
	focusedPane    PaneID
	eventSub       <-chan events.Event
	width          int
	height         int
	quitting       bool
	err            error
}

// New creates the board for lotID.
// It subscribes to all events from the event bus using SubscribeAll.
func New(ctx context.Context, backend Backend, bus *events.EventBus, lotID string) Model {
	return Model{
		ctx:            ctx,
		backend:        backend,
		lotID:          lotID,
		taskPane:       NewTaskPaneModel(),
		progressPane:   NewProgressPaneModel(lotID),
		reschedulePane: NewReschedulePaneModel(ctx, backend, lotID),
		focusedPane:    PaneTasks,
		eventSub:       bus.SubscribeAll(256),
	}
}

// Init loads the lot and starts listening for events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadReport(), waitForEvent(m.eventSub))
}

func (m Model) loadReport() tea.Cmd {
	ctx, backend, lotID := m.ctx, m.backend, m.lotID
	return func() tea.Msg {
		report, err := backend.LotReport(ctx, lotID)
		return reportMsg{report: report, err: err}
	}
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}

		// The reschedule form is modal
		if m.reschedulePane.IsVisible() {
			var cmd tea.Cmd
			m.reschedulePane, cmd = m.reschedulePane.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case KeyQuit:
			m.quitting = true
			return m, tea.Quit

		case KeyReschedule:
			if task := m.taskPane.SelectedTask(); task != nil && !task.IsComplete() {
				m.reschedulePane.SetSize(m.width, m.height)
				cmds = append(cmds, m.reschedulePane.Open(*task))
			}

		case KeyRefresh:
			cmds = append(cmds, m.loadReport())

		case KeyTab, KeyShiftTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTasks
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneProgress
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneTasks {
				var cmd tea.Cmd
				m.taskPane, cmd = m.taskPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.reschedulePane.SetSize(msg.Width, msg.Height)

	case reportMsg:
		m.err = msg.err
		if msg.err == nil {
			m.taskPane.SetLot(msg.report.Lot)
			m.progressPane.SetReport(msg.report)
		}

	case previewMsg:
		var cmd tea.Cmd
		m.reschedulePane, cmd = m.reschedulePane.Update(msg)
		cmds = append(cmds, cmd)

	case appliedMsg:
		var cmd tea.Cmd
		m.reschedulePane, cmd = m.reschedulePane.Update(msg)
		cmds = append(cmds, cmd, m.loadReport())

	case events.Event:
		var cmd tea.Cmd
		m.progressPane, cmd = m.progressPane.Update(msg)
		cmds = append(cmds, cmd)
		if msg.LotID() == m.lotID {
			cmds = append(cmds, m.loadReport())
		}
		cmds = append(cmds, waitForEvent(m.eventSub))

	default:
		// Forward anything else (form cursor blinks and the like) to the open form
		if m.reschedulePane.IsVisible() {
			var cmd tea.Cmd
			m.reschedulePane, cmd = m.reschedulePane.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the board.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.reschedulePane.IsVisible() {
		return m.reschedulePane.View()
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.taskPane.View(), m.progressPane.View())

	footer := HelpView()
	if m.err != nil {
		footer = StyleError.Render(m.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, footer)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 62) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // help bar

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.progressPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
}
