package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptSubmittedMsg is sent when the user submits a request.
type PromptSubmittedMsg struct {
	Text string
}

// InputField is the text input for entering requests.
type InputField struct {
	input textinput.Model
	width int
}

// NewInputField creates a focused input field.
func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Ask Ari anything and press Enter..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	return &InputField{input: ti, width: 80}
}

// SetWidth sets the field width.
func (f *InputField) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 6
}

// Update handles messages for the input field.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		text := f.input.Value()
		if text != "" {
			f.input.Reset()
			return f, func() tea.Msg {
				return PromptSubmittedMsg{Text: text}
			}
		}
		return f, nil
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *InputField) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	return boxStyle.Render(promptStyle.Render("> ") + f.input.View())
}
