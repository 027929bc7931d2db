package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the title bar with the current orchestrator phase.
type Header struct {
	width int
	phase string

	titleStyle lipgloss.Style
	phaseStyle lipgloss.Style
}

// NewHeader creates a header.
func NewHeader() *Header {
	return &Header{
		width: 80,
		phase: "idle",

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1),
		phaseStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Padding(0, 1),
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetPhase updates the displayed orchestrator phase.
func (h *Header) SetPhase(phase string) {
	h.phase = phase
}

// View renders the header line.
func (h *Header) View() string {
	title := h.titleStyle.Render("Ari")
	phase := h.phaseStyle.Render(fmt.Sprintf("[%s]", h.phase))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, phase)
}
