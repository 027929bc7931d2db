package tui

import (
	"encoding/json"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kaptinlin/jsonrepair"

	"github.com/arihq/ari/internal/stream"
	"github.com/arihq/ari/pkg/models"
)

// plannerName is the display name of the planning agent.
const plannerName = "Planning"

// workerPrefix marks worker agent names. The task id follows the last dash.
const workerPrefix = "Worker_"

// StreamEventMsg wraps one multiplexed agent event for the TUI.
type StreamEventMsg struct {
	Event models.StreamEvent
}

// StreamClosedMsg signals that the event source has shut down.
type StreamClosedMsg struct{}

// SessionDoneMsg signals that the orchestrator finished handling one request.
type SessionDoneMsg struct {
	Err error
}

// AgentJoinedMsg reports that agents registered with the run. Count is the
// registry size after the registration.
type AgentJoinedMsg struct {
	Count int
}

// TranscriptMsg carries one incremental piece of agent output.
type TranscriptMsg struct {
	Agent        string
	Kind         models.BlockType
	Text         string
	ToolName     string
	FirstForTool bool
	IsError      bool
}

// PlanMsg replaces the task board contents.
type PlanMsg struct {
	Steps         []BoardStep
	ExecutionMode string
}

// TaskStatusMsg updates the status of one board row.
type TaskStatusMsg struct {
	ID     int
	Status models.SubtaskStatus
}

// BoardStep is one row of the task board.
type BoardStep struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Dependencies []int  `json:"dependencies"`
	Status       models.SubtaskStatus
}

type boardPlan struct {
	Steps         []BoardStep `json:"steps"`
	ExecutionMode string      `json:"execution_mode"`
}

// Router translates raw stream events into TUI messages. It routes on the
// producing agent's name: the planner's final reply carries the plan JSON
// that seeds the task board, and worker names encode the subtask they are
// executing.
type Router struct {
	acc *stream.Accumulator
}

// NewRouter creates a router with fresh delta-tracking state.
func NewRouter() *Router {
	return &Router{acc: stream.NewAccumulator()}
}

// Reset discards delta-tracking state between independent requests.
func (r *Router) Reset() {
	r.acc.Reset()
}

// Route converts one stream event into zero or more TUI messages.
func (r *Router) Route(ev models.StreamEvent) []tea.Msg {
	var out []tea.Msg

	name := ev.Message.Name
	if id, ok := workerTaskID(name); ok {
		status := models.SubtaskRunning
		if ev.Final && replyCompletes(ev.Message) {
			status = models.SubtaskDone
			if replyLooksFailed(ev.Message) {
				status = models.SubtaskFailed
			}
		}
		out = append(out, TaskStatusMsg{ID: id, Status: status})
	} else if name == plannerName && ev.Final {
		if plan, ok := parseBoardPlan(ev.Message.Text()); ok {
			out = append(out, PlanMsg{Steps: plan.Steps, ExecutionMode: plan.ExecutionMode})
		}
	}

	for _, inc := range r.acc.Observe(ev.Message) {
		out = append(out, TranscriptMsg{
			Agent:        inc.Agent,
			Kind:         inc.Kind,
			Text:         inc.Text,
			ToolName:     inc.ToolName,
			FirstForTool: inc.FirstForTool,
			IsError:      inc.IsError,
		})
	}
	return out
}

// workerTaskID extracts the subtask id from a worker agent name such as
// "Worker_coder-3".
func workerTaskID(name string) (int, bool) {
	if !strings.HasPrefix(name, workerPrefix) {
		return 0, false
	}
	idx := strings.LastIndex(name, "-")
	if idx < 0 || idx == len(name)-1 {
		return 0, false
	}
	id, err := strconv.Atoi(name[idx+1:])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// replyCompletes reports whether a final event closes the worker's reply.
// The runtime also emits final events for intermediate turns that request
// tools and for the tool-result messages feeding them back; neither ends
// the reply, so a worker stays running until an assistant message with no
// pending tool calls arrives.
func replyCompletes(msg models.Message) bool {
	if msg.Role != models.RoleAssistant {
		return false
	}
	return len(msg.ToolUses()) == 0
}

var failureMarkers = []string{"task failed", "任务失败", "执行失败"}

func replyLooksFailed(msg models.Message) bool {
	if msg.Metadata["status"] == "failed" {
		return true
	}
	text := strings.ToLower(msg.Text())
	for _, marker := range failureMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// parseBoardPlan extracts the plan JSON embedded in the planner's reply,
// repairing truncated output when plain decoding fails.
func parseBoardPlan(text string) (boardPlan, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return boardPlan{}, false
	}
	raw := text[start : end+1]

	var plan boardPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return boardPlan{}, false
		}
		if err := json.Unmarshal([]byte(repaired), &plan); err != nil {
			return boardPlan{}, false
		}
	}
	if len(plan.Steps) == 0 {
		return boardPlan{}, false
	}
	for i := range plan.Steps {
		plan.Steps[i].Status = models.SubtaskPending
	}
	return plan, true
}
