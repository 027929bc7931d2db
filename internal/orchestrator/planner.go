package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/arihq/ari/internal/agent"
	"github.com/arihq/ari/pkg/models"
)

// planningPrompt is the system prompt for the planning agent. The contract is
// strict JSON so the response can be parsed without further model calls.
const planningPrompt = `You are a task planning expert. Break the user's complex task into an ordered list of subtasks. Each subtask must be independent enough for another agent to execute on its own.

Return ONLY a JSON object with this exact structure (no markdown fences, no surrounding text):
{
  "steps": [
    {
      "id": 1,
      "name": "Short subtask name",
      "description": "Detailed subtask description",
      "dependencies": [],
      "agent_type": "general"
    }
  ],
  "execution_mode": "parallel"
}

Rules:
- "id" must be consecutive integers starting at 1.
- "description" must be detailed enough for an agent to execute the step independently.
- "dependencies" is a list of ids of prerequisite steps. Use [] when there are none.
- "agent_type" is one of "general", "math", "search", "coding", "analysis".
- "execution_mode" is "serial" or "parallel".`

// plannedStep is the JSON structure the planning agent returns per step.
type plannedStep struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Dependencies []int  `json:"dependencies"`
	AgentType    string `json:"agent_type"`
}

// plannedResponse is the full JSON document the planning agent returns.
type plannedResponse struct {
	Steps         []plannedStep `json:"steps"`
	ExecutionMode string        `json:"execution_mode"`
}

// Planner turns a free-text task description into a Plan via one call to a
// planning agent.
type Planner struct {
	model     agent.ModelClient
	registrar agent.Registrar
	logger    *DebugLogger

	// MaxTokens caps the planning agent's output. Zero means the provider
	// default.
	MaxTokens int
}

// NewPlanner creates a planner. registrar may be nil when the planning
// agent's stream does not need to be observed.
func NewPlanner(model agent.ModelClient, registrar agent.Registrar, logger *DebugLogger) *Planner {
	return &Planner{model: model, registrar: registrar, logger: logger}
}

// Decompose produces a plan for the given task. Malformed planner output
// degrades to the fixed three-step plan rather than failing the task.
func (p *Planner) Decompose(ctx context.Context, task string) (*models.Plan, error) {
	rt := agent.NewRuntime(agent.RuntimeConfig{
		Name:      "Planning",
		System:    planningPrompt,
		Model:     p.model,
		MaxTokens: p.MaxTokens,
	})
	if p.registrar != nil {
		p.registrar.Register(rt)
	}

	reply, err := rt.Reply(ctx, models.NewUserMessage("user", task))
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}

	plan, notes, perr := parsePlan(reply.Text())
	if perr != nil {
		p.logger.Log("planner output unusable (%v), using default plan", perr)
		return defaultPlan(task), nil
	}
	for _, note := range notes {
		p.logger.Log("planner: %s", note)
	}
	return plan, nil
}

// parsePlan extracts and validates the planner's JSON document. Recoverable
// oddities (dropped dependency ids, unknown agent types) come back as notes.
func parsePlan(response string) (*models.Plan, []string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return nil, nil, fmt.Errorf("no JSON object in response")
	}
	raw := response[start : end+1]

	var parsed plannedResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return nil, nil, fmt.Errorf("unmarshal plan: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return nil, nil, fmt.Errorf("unmarshal repaired plan: %w", err)
		}
	}

	if len(parsed.Steps) == 0 {
		return nil, nil, fmt.Errorf("plan has no steps")
	}
	for i, s := range parsed.Steps {
		if s.ID != i+1 {
			return nil, nil, fmt.Errorf("step ids not contiguous: got %d at position %d", s.ID, i+1)
		}
		if strings.TrimSpace(s.Description) == "" {
			return nil, nil, fmt.Errorf("step %d has no description", s.ID)
		}
	}

	plan := &models.Plan{ExecutionMode: models.ExecutionParallel}
	if parsed.ExecutionMode == string(models.ExecutionSerial) {
		plan.ExecutionMode = models.ExecutionSerial
	}

	var notes []string
	for _, s := range parsed.Steps {
		agentType := models.AgentType(s.AgentType)
		if !agentType.Valid() {
			if s.AgentType != "" {
				notes = append(notes, fmt.Sprintf("step %d: unknown agent type %q, using general", s.ID, s.AgentType))
			}
			agentType = models.AgentTypeGeneral
		}
		step := &models.Subtask{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			AgentType:   agentType,
			Status:      models.SubtaskPending,
		}
		// Dependency ids outside 1..N or self-referencing are dropped; the
		// remaining edges still gate execution.
		for _, dep := range s.Dependencies {
			if dep >= 1 && dep <= len(parsed.Steps) && dep != s.ID {
				step.Dependencies = append(step.Dependencies, dep)
			} else {
				notes = append(notes, fmt.Sprintf("step %d: dropped invalid dependency id %d", s.ID, dep))
			}
		}
		plan.Steps = append(plan.Steps, step)
	}

	if planHasCycle(plan) {
		return nil, nil, fmt.Errorf("plan has a dependency cycle")
	}
	return plan, notes, nil
}

// planHasCycle detects circular dependencies with DFS coloring.
func planHasCycle(plan *models.Plan) bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make([]int, len(plan.Steps)+1)

	var visit func(id int) bool
	visit = func(id int) bool {
		colors[id] = 1
		for _, dep := range plan.Step(id).Dependencies {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for _, s := range plan.Steps {
		if colors[s.ID] == 0 && visit(s.ID) {
			return true
		}
	}
	return false
}

// defaultPlan is the fixed three-step fallback used when decomposition
// output cannot be parsed.
func defaultPlan(task string) *models.Plan {
	return &models.Plan{
		ExecutionMode: models.ExecutionSerial,
		Steps: []*models.Subtask{
			{
				ID:          1,
				Name:        "Analyze the task",
				Description: fmt.Sprintf("Analyze the requirements of this task: %s", task),
				AgentType:   models.AgentTypeAnalysis,
			},
			{
				ID:           2,
				Name:         "Execute the task",
				Description:  fmt.Sprintf("Carry out the core work of this task: %s", task),
				AgentType:    models.AgentTypeGeneral,
				Dependencies: []int{1},
			},
			{
				ID:           3,
				Name:         "Summarize the outcome",
				Description:  fmt.Sprintf("Summarize the results produced for this task: %s", task),
				AgentType:    models.AgentTypeGeneral,
				Dependencies: []int{2},
			},
		},
	}
}
