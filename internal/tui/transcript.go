package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arihq/ari/pkg/models"
)

// transcriptEntry is one contiguous run of output from a single agent and
// content kind. Consecutive increments of the same run are merged so the
// transcript reads as flowing text rather than a delta log.
type transcriptEntry struct {
	agent    string
	kind     models.BlockType
	toolName string
	isError  bool
	text     strings.Builder
}

// Transcript renders the merged output of all agents in a scrollable
// viewport.
type Transcript struct {
	vp      viewport.Model
	entries []*transcriptEntry
	follow  bool

	agentStyle    lipgloss.Style
	textStyle     lipgloss.Style
	thinkingStyle lipgloss.Style
	toolStyle     lipgloss.Style
	errorStyle    lipgloss.Style
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		vp:     viewport.New(80, 20),
		follow: true,

		agentStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		textStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		thinkingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		toolStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("36")),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// SetSize sets the viewport dimensions.
func (t *Transcript) SetSize(width, height int) {
	t.vp.Width = width
	t.vp.Height = height
	t.refresh()
}

// Append folds one incremental update into the transcript.
func (t *Transcript) Append(msg TranscriptMsg) {
	if msg.Text == "" && !msg.FirstForTool {
		return
	}

	var entry *transcriptEntry
	if n := len(t.entries); n > 0 {
		last := t.entries[n-1]
		if last.agent == msg.Agent && last.kind == msg.Kind && !msg.FirstForTool {
			entry = last
		}
	}
	if entry == nil {
		entry = &transcriptEntry{
			agent:    msg.Agent,
			kind:     msg.Kind,
			toolName: msg.ToolName,
			isError:  msg.IsError,
		}
		t.entries = append(t.entries, entry)
	}
	if msg.IsError {
		entry.isError = true
	}
	entry.text.WriteString(msg.Text)
	t.refresh()
}

// Clear empties the transcript between requests.
func (t *Transcript) Clear() {
	t.entries = nil
	t.refresh()
}

// Update forwards scroll keys to the viewport. Auto-follow resumes whenever
// the user scrolls back to the bottom.
func (t *Transcript) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.vp, cmd = t.vp.Update(msg)
	t.follow = t.vp.AtBottom()
	return cmd
}

func (t *Transcript) refresh() {
	var b strings.Builder
	lastAgent := ""
	for _, e := range t.entries {
		if e.agent != lastAgent {
			if lastAgent != "" {
				b.WriteString("\n")
			}
			b.WriteString(t.agentStyle.Render(e.agent))
			b.WriteString("\n")
			lastAgent = e.agent
		}
		b.WriteString(t.renderEntry(e))
		b.WriteString("\n")
	}

	t.vp.SetContent(lipgloss.NewStyle().Width(t.vp.Width).Render(b.String()))
	if t.follow {
		t.vp.GotoBottom()
	}
}

func (t *Transcript) renderEntry(e *transcriptEntry) string {
	body := strings.TrimRight(e.text.String(), "\n")
	switch e.kind {
	case models.BlockThinking:
		return t.thinkingStyle.Render(body)
	case models.BlockToolUse:
		label := t.toolStyle.Render("⚙ " + e.toolName)
		if body == "" {
			return label
		}
		return label + " " + t.toolStyle.Render(body)
	case models.BlockToolResult:
		if e.isError {
			return t.errorStyle.Render("✗ " + body)
		}
		return t.toolStyle.Render("→ " + body)
	default:
		return t.textStyle.Render(body)
	}
}

// View renders the transcript viewport.
func (t *Transcript) View() string {
	return t.vp.View()
}
