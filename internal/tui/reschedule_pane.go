package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/scheduler"
)

const (
	modeDelay      = "delay"
	modeReschedule = "reschedule"
)

type rescheduleStage int

const (
	stageInput rescheduleStage = iota
	stagePreviewing
	stageConfirm
	stageApplying
	stageDone
)

// previewMsg carries a computed plan and the conflicts it would introduce.
type previewMsg struct {
	plan      *scheduler.Plan
	conflicts []scheduler.Conflict
	err       error
}

// appliedMsg reports the outcome of applying a previewed plan.
type appliedMsg struct {
	result *planner.ApplyResult
	err    error
}

// ReschedulePaneModel is the modal delay/reschedule form. It always shows the
// preview and asks for confirmation before anything is stored.
type ReschedulePaneModel struct {
	ctx     context.Context
	backend Backend
	lotID   string
	task    scheduler.Task
	stage   rescheduleStage
	form    *huh.Form
	width   int
	height  int
	visible bool

	plan      *scheduler.Plan
	conflicts []scheduler.Conflict
	message   string
	err       error

	// Form field bindings
	mode     string
	amount   string
	reason   string
	notes    string
	notified bool
	confirm  bool
}

// NewReschedulePaneModel creates a hidden reschedule pane.
func NewReschedulePaneModel(ctx context.Context, backend Backend, lotID string) ReschedulePaneModel {
	return ReschedulePaneModel{ctx: ctx, backend: backend, lotID: lotID}
}

// Open shows the form for task.
func (m *ReschedulePaneModel) Open(task scheduler.Task) tea.Cmd {
	m.task = task
	m.visible = true
	m.stage = stageInput
	m.plan = nil
	m.conflicts = nil
	m.message = ""
	m.err = nil
	m.mode = modeDelay
	m.amount = ""
	m.reason = ""
	m.notes = ""
	m.notified = false
	m.confirm = false
	m.buildInputForm()
	return m.form.Init()
}

func (m *ReschedulePaneModel) buildInputForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("mode").
				Title("Change").
				Options(
					huh.NewOption("Delay by workdays", modeDelay),
					huh.NewOption("Reschedule to a date", modeReschedule),
				).
				Value(&m.mode),

			huh.NewInput().
				Key("amount").
				TitleFunc(func() string {
					if m.mode == modeReschedule {
						return "New start date (YYYY-MM-DD)"
					}
					return "Workdays of delay"
				}, &m.mode).
				Value(&m.amount).
				Validate(func(s string) error {
					_, _, err := parseChange(m.mode, s)
					return err
				}),
		).Title(fmt.Sprintf("%s (starts %s)", m.task.Name, m.task.ScheduledStart)),

		huh.NewGroup(
			huh.NewInput().
				Key("reason").
				Title("Reason").
				Value(&m.reason).
				Placeholder("weather"),

			huh.NewText().
				Key("notes").
				Title("Notes").
				Value(&m.notes),

			huh.NewConfirm().
				Key("notified").
				Title("Trades already notified?").
				Value(&m.notified),
		).Title("Audit"),
	)
	m.form.WithWidth(max(m.width-8, 20))
}

func (m *ReschedulePaneModel) buildConfirmForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title("Apply this change?").
				Affirmative("Apply").
				Negative("Cancel").
				Value(&m.confirm),
		),
	)
	m.form.WithWidth(max(m.width-8, 20))
}

// parseChange validates the amount field for mode.
func parseChange(mode, amount string) (int, civil.Date, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, civil.Date{}, errors.New("required")
	}

	if mode == modeReschedule {
		d, err := civil.ParseDate(amount)
		if err != nil {
			return 0, civil.Date{}, errors.New("use YYYY-MM-DD")
		}
		return 0, d, nil
	}

	days, err := strconv.Atoi(amount)
	if err != nil {
		return 0, civil.Date{}, errors.New("enter a whole number of workdays")
	}
	if days < 0 {
		return 0, civil.Date{}, errors.New("delay cannot be negative")
	}
	return days, civil.Date{}, nil
}

func (m ReschedulePaneModel) previewCmd() tea.Cmd {
	ctx, backend, lotID, taskID := m.ctx, m.backend, m.lotID, m.task.ID
	days, date, err := parseChange(m.mode, m.amount)
	mode := m.mode

	return func() tea.Msg {
		if err != nil {
			return previewMsg{err: err}
		}

		var plan *scheduler.Plan
		if mode == modeReschedule {
			plan, err = backend.PreviewReschedule(ctx, lotID, taskID, date)
		} else {
			plan, err = backend.PreviewDelay(ctx, lotID, taskID, days)
		}
		if err != nil {
			return previewMsg{err: err}
		}

		conflicts, err := backend.PreviewMoveConflicts(ctx, plan, plan.AffectedWindow())
		if err != nil {
			return previewMsg{plan: plan, err: err}
		}
		return previewMsg{plan: plan, conflicts: conflicts}
	}
}

func (m ReschedulePaneModel) applyCmd() tea.Cmd {
	ctx, backend, plan := m.ctx, m.backend, m.plan
	req := planner.ChangeRequest{Reason: m.reason, Notes: m.notes, Notified: m.notified}

	return func() tea.Msg {
		result, err := backend.ApplyPlan(ctx, plan, req)
		return appliedMsg{result: result, err: err}
	}
}

// Update handles messages for the reschedule pane.
func (m ReschedulePaneModel) Update(msg tea.Msg) (ReschedulePaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == KeyEsc {
			m.visible = false
			return m, nil
		}
		if m.stage == stageDone && msg.String() == "enter" {
			m.visible = false
			return m, nil
		}

	case previewMsg:
		m.plan = msg.plan
		m.conflicts = msg.conflicts
		if msg.err != nil {
			m.err = msg.err
			m.stage = stageDone
			return m, nil
		}
		if msg.plan.Outcome != scheduler.OutcomeShifted {
			m.stage = stageDone
			return m, nil
		}
		m.stage = stageConfirm
		m.buildConfirmForm()
		return m, m.form.Init()

	case appliedMsg:
		m.stage = stageDone
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.message = fmt.Sprintf("Applied: %d tasks moved, completion %s", len(msg.result.Plan.Affected), msg.result.Plan.NewCompletion)
		return m, nil
	}

	if m.stage != stageInput && m.stage != stageConfirm {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.visible = false
		return m, nil

	case huh.StateCompleted:
		if m.stage == stageInput {
			m.stage = stagePreviewing
			return m, m.previewCmd()
		}
		if !m.confirm {
			m.visible = false
			return m, nil
		}
		m.stage = stageApplying
		return m, m.applyCmd()
	}

	return m, cmd
}

// View renders the reschedule pane.
func (m ReschedulePaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	switch m.stage {
	case stageInput:
		content = m.form.View()
	case stagePreviewing:
		content = StyleStatusPending.Render("Computing preview...")
	case stageConfirm:
		content = lipgloss.JoinVertical(lipgloss.Left, renderPreview(m.plan, m.conflicts), "", m.form.View())
	case stageApplying:
		content = lipgloss.JoinVertical(lipgloss.Left, renderPreview(m.plan, m.conflicts), "", StyleStatusPending.Render("Applying..."))
	case stageDone:
		switch {
		case m.err != nil:
			content = StyleError.Render(fmt.Sprintf("✗ %v", m.err))
		case m.message != "":
			content = StyleOK.Render("✓ " + m.message)
		default:
			content = renderPreview(m.plan, m.conflicts)
		}
		content += "\n\n" + StyleHelp.Render("enter/esc: close")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("Reschedule " + m.task.Name)

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// renderPreview lists the tasks a plan moves and any capacity conflicts the
// move would add.
func renderPreview(plan *scheduler.Plan, conflicts []scheduler.Conflict) string {
	if plan == nil {
		return ""
	}

	var b strings.Builder
	switch plan.Outcome {
	case scheduler.OutcomeDependencyViolation:
		fmt.Fprintf(&b, "%s\n", StyleError.Render("Dependency violation"))
		fmt.Fprintf(&b, "%s cannot start before %s (requested %s).\n", plan.TaskID, dateOr(*plan.EarliestStart), plan.NormalizedDate)
		return b.String()
	case scheduler.OutcomeNoOp:
		fmt.Fprintf(&b, "No change: %s already starts on %s.\n", plan.TaskID, plan.NormalizedDate)
		return b.String()
	}

	if plan.NormalizedDate != plan.RequestedDate {
		fmt.Fprintf(&b, "Requested %s falls on a non-workday; using %s.\n\n", plan.RequestedDate, plan.NormalizedDate)
	}

	fmt.Fprintf(&b, "%-24s %-23s %s\n", "Task", "Was", "Now")
	for _, a := range plan.Affected {
		fmt.Fprintf(&b, "%-24s %s..%s  %s..%s\n", truncate(a.Name, 24), shortDate(a.OldStart), shortDate(a.OldEnd), shortDate(a.NewStart), shortDate(a.NewEnd))
	}
	fmt.Fprintf(&b, "\n%s moves %+d workdays. Completion: %s -> %s\n", plan.TaskID, plan.Shift, plan.OldCompletion, plan.NewCompletion)

	if len(conflicts) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleStatusBlocked.Render(fmt.Sprintf("%d new capacity conflicts:", len(conflicts))))
		b.WriteString("\n")
		for _, c := range conflicts {
			fmt.Fprintf(&b, "  %s on %s: %d lots, capacity %d\n", valueOr(c.SubcontractorName, c.SubcontractorID), c.Date, c.Booked, c.Capacity)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// SetSize updates the dimensions of the pane.
func (m *ReschedulePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// IsVisible returns whether the pane is currently shown.
func (m ReschedulePaneModel) IsVisible() bool {
	return m.visible
}
