package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arihq/ari/pkg/models"
)

// TasksPanel displays the current plan as a list of subtasks with status
// glyphs. It is populated from the planner's reply and updated as workers
// stream.
type TasksPanel struct {
	steps  []BoardStep
	mode   string
	width  int
	height int

	titleStyle   lipgloss.Style
	borderStyle  lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	depStyle     lipgloss.Style
}

// NewTasksPanel creates an empty tasks panel.
func NewTasksPanel() *TasksPanel {
	return &TasksPanel{
		width:  40,
		height: 10,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")),
		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		runningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		depStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetSize sets the panel dimensions.
func (p *TasksPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetPlan replaces the board contents with a fresh plan.
func (p *TasksPanel) SetPlan(steps []BoardStep, mode string) {
	p.steps = steps
	p.mode = mode
}

// Clear empties the board between requests.
func (p *TasksPanel) Clear() {
	p.steps = nil
	p.mode = ""
}

// SetStatus updates the status of the step with the given id. Terminal
// statuses stick so a late running update cannot reopen a finished step.
func (p *TasksPanel) SetStatus(id int, status models.SubtaskStatus) {
	for i := range p.steps {
		if p.steps[i].ID != id {
			continue
		}
		if p.steps[i].Status.Terminal() && !status.Terminal() {
			return
		}
		p.steps[i].Status = status
		return
	}
}

// Progress returns how many steps are terminal and the total count.
func (p *TasksPanel) Progress() (terminal, total int) {
	for _, s := range p.steps {
		if s.Status.Terminal() {
			terminal++
		}
	}
	return terminal, len(p.steps)
}

func (p *TasksPanel) statusGlyph(status models.SubtaskStatus) string {
	switch status {
	case models.SubtaskRunning, models.SubtaskAssigning:
		return p.runningStyle.Render("◐")
	case models.SubtaskDone:
		return p.doneStyle.Render("●")
	case models.SubtaskFailed:
		return p.failedStyle.Render("✗")
	default:
		return p.pendingStyle.Render("○")
	}
}

// View renders the panel.
func (p *TasksPanel) View() string {
	title := "Tasks"
	if p.mode != "" {
		title = fmt.Sprintf("Tasks (%s)", p.mode)
	}

	var b strings.Builder
	b.WriteString(p.titleStyle.Render(title))
	b.WriteString("\n")

	if len(p.steps) == 0 {
		b.WriteString(p.pendingStyle.Render(" no plan yet"))
	}

	innerWidth := p.width - 4
	if innerWidth < 10 {
		innerWidth = 10
	}
	for _, s := range p.steps {
		label := s.Name
		if label == "" {
			label = s.Description
		}
		line := fmt.Sprintf(" %s %d. %s", p.statusGlyph(s.Status), s.ID, truncate(label, innerWidth-8))
		if len(s.Dependencies) > 0 {
			line += p.depStyle.Render(fmt.Sprintf(" ←%v", s.Dependencies))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return p.borderStyle.
		Width(p.width - 2).
		Height(p.height - 2).
		Render(b.String())
}

func truncate(s string, max int) string {
	if max <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
