package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/planner"
	"github.com/aristath/lotsched/internal/scheduler"
)

const maxActivity = 50

// ProgressPaneModel shows the lot's completion, forecast and recent activity
// from the event bus.
type ProgressPaneModel struct {
	lotID    string
	report   *planner.Report
	activity []string // Newest last
	width    int
	height   int
	focused  bool
}

// NewProgressPaneModel creates a progress pane for lotID.
func NewProgressPaneModel(lotID string) ProgressPaneModel {
	return ProgressPaneModel{lotID: lotID}
}

// SetReport replaces the displayed summary.
func (m *ProgressPaneModel) SetReport(r *planner.Report) {
	m.report = r
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.Event:
		if line := m.describe(msg); line != "" {
			m.activity = append(m.activity, line)
			if len(m.activity) > maxActivity {
				m.activity = m.activity[len(m.activity)-maxActivity:]
			}
		}
	}

	return m, nil
}

// describe turns an event into an activity line. Events about other lots are
// skipped; capacity events are shown when they involve this lot.
func (m ProgressPaneModel) describe(ev events.Event) string {
	switch e := ev.(type) {
	case events.ScheduleShiftedEvent:
		if e.Lot != m.lotID {
			return ""
		}
		line := fmt.Sprintf("%s shifted %+dd, %d tasks moved, completion %s", e.TaskID, e.Shift, e.Affected, e.NewCompletion)
		if e.Reason != "" {
			line += " (" + e.Reason + ")"
		}
		return line
	case events.TaskStatusChangedEvent:
		if e.Lot != m.lotID {
			return ""
		}
		return fmt.Sprintf("%s is %s", e.TaskID, e.Status)
	case events.InspectionRecordedEvent:
		if e.Lot != m.lotID {
			return ""
		}
		return fmt.Sprintf("inspection on %s: %s", e.TaskID, e.Result)
	case events.ConflictDetectedEvent:
		for _, id := range e.Lots {
			if id == m.lotID {
				return StyleStatusBlocked.Render(fmt.Sprintf("%s over capacity on %s (%d/%d)", e.SubcontractorID, e.Date, e.Booked, e.Capacity))
			}
		}
	}
	return ""
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Lot Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if m.report == nil {
		b.WriteString(StyleStatusPending.Render("Loading..."))
	} else {
		s := m.report.Summary
		fmt.Fprintf(&b, "%s  %s\n", s.Name, StyleStatusPending.Render(s.Status))
		fmt.Fprintf(&b, "Milestone: %s (%d%%)\n", s.Milestone.Name, s.Milestone.Percent)
		fmt.Fprintf(&b, "Target:    %s\n", dateOr(s.TargetCompletion))
		fmt.Fprintf(&b, "Predicted: %s  %s\n", dateOr(s.PredictedCompletion), variance(s.VarianceDays))
		b.WriteString("\n")
		b.WriteString(m.progressBar(s))
		b.WriteString("\n")

		for _, st := range []scheduler.TaskStatus{scheduler.TaskInProgress, scheduler.TaskDelayed, scheduler.TaskBlocked, scheduler.TaskReady, scheduler.TaskPending} {
			if n := s.Counts[st.String()]; n > 0 {
				fmt.Fprintf(&b, "%s %-12s %d\n", StatusIcon(st), st.String(), n)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleTitle.Render("Activity"))
	b.WriteString("\n")
	if len(m.activity) == 0 {
		b.WriteString(StyleStatusPending.Render("No activity yet."))
	}
	room := max(m.height-lipgloss.Height(b.String())-2, 1)
	start := max(len(m.activity)-room, 0)
	for _, line := range m.activity[start:] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

func (m ProgressPaneModel) progressBar(s scheduler.Summary) string {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	if total == 0 {
		return ""
	}

	barWidth := min(m.width-12, 40)
	done := (s.Counts[scheduler.TaskComplete.String()] * barWidth) / total
	delayed := ((s.Counts[scheduler.TaskDelayed.String()] + s.Counts[scheduler.TaskBlocked.String()]) * barWidth) / total
	active := (s.Counts[scheduler.TaskInProgress.String()] * barWidth) / total
	rest := barWidth - done - delayed - active

	bar := StyleStatusComplete.Render(strings.Repeat("=", max(0, done)))
	bar += StyleStatusDelayed.Render(strings.Repeat("!", max(0, delayed)))
	bar += StyleStatusInProgress.Render(strings.Repeat("-", max(0, active)))
	bar += StyleStatusPending.Render(strings.Repeat(".", max(0, rest)))
	return fmt.Sprintf("[%s] %d%%\n", bar, s.Progress)
}

func variance(days int) string {
	switch {
	case days > 0:
		return StyleStatusBlocked.Render(fmt.Sprintf("%d workdays late", days))
	case days < 0:
		return StyleStatusComplete.Render(fmt.Sprintf("%d workdays early", -days))
	}
	return StyleStatusComplete.Render("on target")
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
