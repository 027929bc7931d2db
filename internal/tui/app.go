// Package tui provides the interactive terminal interface for Ari. It shows
// the live transcript of every agent, a task board populated from the
// planner's output, and an input field for new requests.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// minBoardWidth is the narrowest useful task board.
const minBoardWidth = 28

// App is the main bubbletea model.
type App struct {
	header     *Header
	transcript *Transcript
	board      *TasksPanel
	input      *InputField
	footer     *Footer
	router     *Router

	// submit hands a user request to the session loop. It must not block.
	submit func(string)

	width    int
	height   int
	busy     bool
	quitting bool
}

// New creates the TUI model. submit is invoked with each request the user
// enters; the caller runs it through the orchestrator and reports completion
// with a SessionDoneMsg.
func New(submit func(string)) *App {
	return &App{
		header:     NewHeader(),
		transcript: NewTranscript(),
		board:      NewTasksPanel(),
		input:      NewInputField(),
		footer:     NewFooter(),
		router:     NewRouter(),
		submit:     submit,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "up", "down", "pgup", "pgdown":
			cmds = append(cmds, a.transcript.Update(msg))
		default:
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()

	case PromptSubmittedMsg:
		if a.busy {
			a.footer.SetNotice("still working, hold on")
			break
		}
		a.busy = true
		a.footer.SetNotice("")
		a.header.SetPhase("working")
		a.transcript.Clear()
		a.board.Clear()
		a.router.Reset()
		a.footer.SetProgress(0, 0)
		a.submit(msg.Text)

	case StreamEventMsg:
		for _, routed := range a.router.Route(msg.Event) {
			a.apply(routed)
		}

	case AgentJoinedMsg:
		a.footer.SetAgents(msg.Count)

	case SessionDoneMsg:
		a.busy = false
		if msg.Err != nil {
			a.header.SetPhase("error")
			a.footer.SetNotice(msg.Err.Error())
		} else {
			a.header.SetPhase("idle")
		}

	case StreamClosedMsg:
		a.quitting = true
		return a, tea.Quit

	default:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case TranscriptMsg:
		a.transcript.Append(msg)
	case PlanMsg:
		a.board.SetPlan(msg.Steps, msg.ExecutionMode)
		a.header.SetPhase("executing plan")
		a.footer.SetProgress(a.board.Progress())
	case TaskStatusMsg:
		a.board.SetStatus(msg.ID, msg.Status)
		a.footer.SetProgress(a.board.Progress())
	}
}

func (a *App) resize() {
	boardWidth := a.width / 3
	if boardWidth < minBoardWidth {
		boardWidth = minBoardWidth
	}
	// One line header, one line footer, three lines input box.
	bodyHeight := a.height - 5
	if bodyHeight < 4 {
		bodyHeight = 4
	}

	a.header.SetWidth(a.width)
	a.footer.SetWidth(a.width)
	a.input.SetWidth(a.width)
	a.board.SetSize(boardWidth, bodyHeight)
	a.transcript.SetSize(a.width-boardWidth-1, bodyHeight)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "bye\n"
	}
	if a.width == 0 {
		return "loading..."
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.transcript.View(),
		" ",
		a.board.View(),
	)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.header.View(),
		body,
		a.input.View(),
		a.footer.View(),
	)
}
