package tui

import (
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/scheduler"
)

const taskListWidth = 34

// TaskPaneModel lists a lot's tasks and shows the selected task's details
// in a scrollable viewport.
type TaskPaneModel struct {
	tasks       []scheduler.Task // Ordered by scheduled start
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates an empty task pane.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{viewport: viewport.New(0, 0)}
}

// SetLot replaces the displayed tasks, keeping the selection on the same
// task when it still exists.
func (m *TaskPaneModel) SetLot(lot *scheduler.Lot) {
	selected := ""
	if t := m.SelectedTask(); t != nil {
		selected = t.ID
	}

	m.tasks = append(m.tasks[:0], lot.Tasks...)
	sort.SliceStable(m.tasks, func(i, j int) bool {
		a, b := m.tasks[i], m.tasks[j]
		if a.ScheduledStart != b.ScheduledStart {
			return a.ScheduledStart.Before(b.ScheduledStart)
		}
		return a.SortOrder < b.SortOrder
	})

	m.selectedIdx = 0
	for i := range m.tasks {
		if m.tasks[i].ID == selected {
			m.selectedIdx = i
			break
		}
	}
	m.updateViewportContent()
}

// SelectedTask returns the highlighted task, or nil when the list is empty.
func (m TaskPaneModel) SelectedTask() *scheduler.Task {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.tasks) {
		return &m.tasks[m.selectedIdx]
	}
	return nil
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.tasks)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}
	}

	return m, cmd
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTaskList(taskListWidth),
		lipgloss.NewStyle().
			Width(m.width-taskListWidth-4).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TaskPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(StyleStatusPending.Render("Loading..."))
	}
	for i := range m.tasks {
		t := &m.tasks[i]
		name := t.Name
		if len(name) > width-14 {
			name = name[:width-17] + "..."
		}

		line := fmt.Sprintf("%s %-*s %s", StatusIcon(t.Status), width-14, name, shortDate(t.ScheduledStart))
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled indicator for a task status.
func StatusIcon(status scheduler.TaskStatus) string {
	switch status {
	case scheduler.TaskInProgress:
		return StyleStatusInProgress.Render("●")
	case scheduler.TaskComplete:
		return StyleStatusComplete.Render("✓")
	case scheduler.TaskBlocked:
		return StyleStatusBlocked.Render("■")
	case scheduler.TaskDelayed:
		return StyleStatusDelayed.Render("!")
	case scheduler.TaskReady:
		return StyleStatusReady.Render("◆")
	default:
		return StyleStatusPending.Render("○")
	}
}

func shortDate(d civil.Date) string {
	if !calendar.IsSet(d) {
		return "--/--"
	}
	return fmt.Sprintf("%02d/%02d", int(d.Month), d.Day)
}

func (m *TaskPaneModel) updateViewportContent() {
	t := m.SelectedTask()
	if t == nil {
		m.viewport.SetContent("No tasks.")
		return
	}
	m.viewport.SetContent(taskDetail(t))
	m.viewport.GotoTop()
}

// taskDetail renders every schedule-relevant field of a task.
func taskDetail(t *scheduler.Task) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", StyleTitle.Render(t.Name), StatusIcon(t.Status)+" "+t.Status.String())
	fmt.Fprintf(&b, "ID:         %s\n", t.ID)
	fmt.Fprintf(&b, "Track:      %s (order %d)\n", t.Track, t.SortOrder)
	fmt.Fprintf(&b, "Trade:      %s\n", valueOr(t.Trade, "-"))
	fmt.Fprintf(&b, "Sub:        %s\n", valueOr(t.SubcontractorID, "unassigned"))
	fmt.Fprintf(&b, "Duration:   %d workdays\n", t.DurationDays)
	fmt.Fprintf(&b, "Scheduled:  %s .. %s\n", dateOr(t.ScheduledStart), dateOr(t.ScheduledEnd))
	fmt.Fprintf(&b, "Actual:     %s .. %s\n", dateOr(t.ActualStart), dateOr(t.ActualEnd))

	var flags []string
	if t.BlocksFinal {
		flags = append(flags, "blocks final")
	}
	if t.IsCriticalPath {
		flags = append(flags, "critical path")
	}
	if t.RequiresInspection {
		flags = append(flags, "inspection")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, "Flags:      %s\n", strings.Join(flags, ", "))
	}

	if len(t.Dependencies) > 0 {
		b.WriteString("\nDepends on:\n")
		for _, dep := range t.Dependencies {
			fmt.Fprintf(&b, "  %s %s", dep.Relation, dep.PredecessorID)
			if dep.LagDays > 0 {
				fmt.Fprintf(&b, " +%dd", dep.LagDays)
			}
			b.WriteString("\n")
		}
	}

	if t.Delay.Days > 0 {
		fmt.Fprintf(&b, "\nDelayed %d workdays", t.Delay.Days)
		if t.Delay.Reason != "" {
			fmt.Fprintf(&b, ": %s", t.Delay.Reason)
		}
		b.WriteString("\n")
		if t.Delay.Notes != "" {
			fmt.Fprintf(&b, "  %s\n", t.Delay.Notes)
		}
	}

	return b.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func dateOr(d civil.Date) string {
	if !calendar.IsSet(d) {
		return "-"
	}
	return d.String()
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	m.viewport.Width = max(w-taskListWidth-4, 10)
	m.viewport.Height = max(h-4, 5)
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
