package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/arihq/ari/internal/agent"
	"github.com/arihq/ari/pkg/models"
)

// failureContract is appended to every worker's system prompt. Workers that
// cannot complete their task must say so explicitly; the dispatcher's keyword
// scan depends on the marker.
const failureContract = `

Failure handling:
- If you cannot complete the task, begin your final reply with "TASK FAILED:" followed by a clear explanation of what went wrong and any partial findings.
- Do not invent results. An honest failure report is better than a fabricated success.
- You get exactly one attempt; there is no retry.`

// failureKeywords flags a failed outcome in a worker's final text when no
// structured status is present. The worker population is bilingual, so both
// English and Chinese markers are scanned.
var failureKeywords = []string{
	"task failed",
	"unable to complete",
	"cannot complete",
	"任务失败",
	"执行失败",
	"无法完成",
}

// Dispatcher creates one short-lived worker agent per subtask and classifies
// its outcome. It makes exactly one attempt per subtask and never retries;
// retry policy belongs to the caller.
type Dispatcher struct {
	model     agent.ModelClient
	registrar agent.Registrar
	logger    *DebugLogger

	// WorkDir is where worker code and shell tools execute.
	WorkDir string
	// MaxIterations caps each worker's think/act loop. Zero means the
	// runtime default.
	MaxIterations int
	// MaxTokens caps each worker model turn's output. Zero means the
	// provider default.
	MaxTokens int
}

// NewDispatcher creates a dispatcher. registrar may be nil when worker
// streams do not need to be observed.
func NewDispatcher(model agent.ModelClient, registrar agent.Registrar, logger *DebugLogger) *Dispatcher {
	return &Dispatcher{model: model, registrar: registrar, logger: logger}
}

// Dispatch runs one subtask to completion on a fresh worker. The returned
// response always carries {task_id, status} metadata; errors during worker
// construction or execution are folded into a failed response, never
// propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, task *models.Subtask, agentName, workPrompt string) models.ToolResponse {
	workerName := "Worker_" + agentName + "-" + strconv.Itoa(task.ID)
	d.logger.Log("dispatching subtask %d to %s", task.ID, workerName)

	arch := archetypeFor(task.AgentType)
	if workPrompt == "" {
		workPrompt = arch.prompt
	}

	rt := agent.NewRuntime(agent.RuntimeConfig{
		Name:          workerName,
		System:        workPrompt + failureContract,
		Model:         d.model,
		Tools:         arch.toolset(d.WorkDir),
		MaxIterations: d.MaxIterations,
		MaxTokens:     d.MaxTokens,
	})
	if d.registrar != nil {
		d.registrar.Register(rt)
	}

	task.Advance(models.SubtaskRunning)

	reply, err := rt.Reply(ctx, models.NewUserMessage("user", task.Description))
	if err != nil {
		d.logger.Log("subtask %d worker error: %v", task.ID, err)
		return failedResponse(task.ID, fmt.Sprintf("subtask %d execution failed: %v", task.ID, err))
	}

	status := classifyOutcome(reply)
	d.logger.Log("subtask %d finished with status %s", task.ID, status)
	return models.ToolResponse{
		Content: []models.ContentBlock{models.TextBlock(reply.Text())},
		Metadata: map[string]string{
			"task_id": strconv.Itoa(task.ID),
			"status":  status,
		},
	}
}

// classifyOutcome decides success vs. failure for a worker's final reply.
// Precedence: structured response metadata, then tool-result metadata
// embedded in the reply, then a bilingual keyword scan of the final text.
// This is a best-effort heuristic, not a correctness guarantee.
func classifyOutcome(reply models.Message) string {
	if s, ok := reply.Metadata["status"]; ok {
		return s
	}

	for _, b := range reply.Content {
		if b.Type == models.BlockToolResult && b.Metadata["status"] == "failed" {
			return "failed"
		}
	}

	text := strings.ToLower(reply.Text())
	for _, kw := range failureKeywords {
		if strings.Contains(text, kw) {
			return "failed"
		}
	}
	return "success"
}

func failedResponse(taskID int, text string) models.ToolResponse {
	return models.ToolResponse{
		Content: []models.ContentBlock{models.TextBlock(text)},
		Metadata: map[string]string{
			"task_id": strconv.Itoa(taskID),
			"status":  "failed",
		},
	}
}
