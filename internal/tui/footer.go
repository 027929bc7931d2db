package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Footer renders key hints and plan progress.
type Footer struct {
	width    int
	terminal int
	total    int
	agents   int
	notice   string

	hintStyle     lipgloss.Style
	progressStyle lipgloss.Style
	noticeStyle   lipgloss.Style
}

// NewFooter creates a footer.
func NewFooter() *Footer {
	return &Footer{
		width: 80,

		hintStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		progressStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		noticeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// SetProgress updates the plan progress counter.
func (f *Footer) SetProgress(terminal, total int) {
	f.terminal = terminal
	f.total = total
}

// SetNotice shows a transient message, such as "busy".
func (f *Footer) SetNotice(notice string) {
	f.notice = notice
}

// SetAgents updates the live agent counter.
func (f *Footer) SetAgents(count int) {
	f.agents = count
}

// View renders the footer line.
func (f *Footer) View() string {
	hints := f.hintStyle.Render(" ↑/↓ scroll · ctrl+c quit ")
	parts := []string{hints}
	if f.agents > 0 {
		parts = append(parts, f.hintStyle.Render(fmt.Sprintf("agents %d ", f.agents)))
	}
	if f.total > 0 {
		parts = append(parts, f.progressStyle.Render(fmt.Sprintf("tasks %d/%d", f.terminal, f.total)))
	}
	if f.notice != "" {
		parts = append(parts, f.noticeStyle.Render(f.notice))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}
