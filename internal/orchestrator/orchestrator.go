package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/arihq/ari/internal/agent"
	"github.com/arihq/ari/pkg/models"
)

// ProjectName is the root agent's display name.
const ProjectName = "Ari"

// State is the orchestrator's lifecycle phase. It is observable so consumers
// can render what the system is doing.
type State string

const (
	StateIdle        State = "idle"
	StateClassifying State = "classifying"
	StateChatting    State = "chatting"
	StatePlanning    State = "planning"
	StateDispatching State = "dispatching"
	StateAggregating State = "aggregating"
)

// rootPrompt is the root agent's system prompt, used for chat replies and
// result aggregation.
const rootPrompt = `You are Ari, an autonomous assistant that coordinates a team of specialist agents.

When you are given the collected results of subtasks, integrate all of them into one coherent answer for the user. Principles:
- Be honest about limits: if a subtask failed, say so and explain what that means for the overall answer.
- Include every result, failures included; give the complete picture.
- Answer in the user's language.`

// chatMaxRunes is the length under which a message without instruction
// keywords is treated as small talk.
const chatMaxRunes = 20

// instructionKeywords mark short messages as work requests rather than chat.
// The user population is bilingual, so both English and Chinese terms appear.
var instructionKeywords = []string{
	"please", "help", "how", "what", "why", "where", "who",
	"calculate", "compute", "search", "find", "analyze", "create",
	"build", "implement", "write", "run", "execute", "solve",
	"explain", "task", "plan",
	"请", "能", "可以", "帮我", "如何", "什么", "为什么", "哪里", "谁",
	"计算", "搜索", "查找", "分析", "创建", "开发", "实现", "完成",
	"任务", "做", "执行", "处理", "解决", "回答", "解释", "说明", "规划",
}

// Config assembles an Orchestrator.
type Config struct {
	// Model is the provider client shared by the root, planner and workers.
	Model agent.ModelClient
	// Registrar receives every spawned runtime, or nil.
	Registrar agent.Registrar
	// Logger receives debug output, or nil.
	Logger *DebugLogger
	// WorkDir is where worker tools execute.
	WorkDir string
	// WorkerMaxIterations caps each worker's think/act loop.
	WorkerMaxIterations int
	// MaxTokens caps every agent model turn's output. Zero means the
	// provider default.
	MaxTokens int
}

// settings are the runtime-tunable knobs a configuration reload may change.
type settings struct {
	workDir             string
	workerMaxIterations int
	maxTokens           int
}

// Orchestrator is the root agent's behavior: it classifies incoming user
// messages as chat or complex work, and drives planning, dispatch and
// aggregation for the latter.
type Orchestrator struct {
	model      agent.ModelClient
	registrar  agent.Registrar
	logger     *DebugLogger
	planner    *Planner
	dispatcher *Dispatcher
	root       *agent.Runtime

	mu      sync.Mutex
	state   State
	plan    *models.Plan
	pending *settings
}

// New creates an orchestrator and registers its root agent.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}

	root := agent.NewRuntime(agent.RuntimeConfig{
		Name:      ProjectName,
		System:    rootPrompt,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
	if cfg.Registrar != nil {
		cfg.Registrar.Register(root)
	}

	planner := NewPlanner(cfg.Model, cfg.Registrar, logger)
	planner.MaxTokens = cfg.MaxTokens

	dispatcher := NewDispatcher(cfg.Model, cfg.Registrar, logger)
	dispatcher.WorkDir = cfg.WorkDir
	dispatcher.MaxIterations = cfg.WorkerMaxIterations
	dispatcher.MaxTokens = cfg.MaxTokens

	return &Orchestrator{
		model:      cfg.Model,
		registrar:  cfg.Registrar,
		logger:     logger,
		planner:    planner,
		dispatcher: dispatcher,
		root:       root,
		state:      StateIdle,
	}
}

// Reconfigure schedules updated worker settings from a freshly loaded
// configuration. They take effect at the start of the next HandleMessage
// call, so agents of an in-flight request are not disturbed.
func (o *Orchestrator) Reconfigure(workDir string, workerMaxIterations, maxTokens int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = &settings{
		workDir:             workDir,
		workerMaxIterations: workerMaxIterations,
		maxTokens:           maxTokens,
	}
}

// applyPending installs a scheduled reconfiguration. Called while no plan is
// running, before any worker goroutine reads the dispatcher.
func (o *Orchestrator) applyPending() {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()
	if p == nil {
		return
	}

	o.dispatcher.WorkDir = p.workDir
	o.dispatcher.MaxIterations = p.workerMaxIterations
	o.dispatcher.MaxTokens = p.maxTokens
	o.planner.MaxTokens = p.maxTokens
	o.logger.Log("settings reloaded: work_dir=%q max_iterations=%d max_tokens=%d",
		p.workDir, p.workerMaxIterations, p.maxTokens)
}

// Root returns the root agent runtime.
func (o *Orchestrator) Root() *agent.Runtime {
	return o.root
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Plan returns the active plan, or nil outside a complex-task run.
func (o *Orchestrator) Plan() *models.Plan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.plan
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Log("state -> %s", s)
}

func (o *Orchestrator) setPlan(p *models.Plan) {
	o.mu.Lock()
	o.plan = p
	o.mu.Unlock()
}

// HandleMessage processes one user message end to end and returns the final
// user-facing reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, input string) (models.Message, error) {
	defer o.setState(StateIdle)
	o.applyPending()

	o.setState(StateClassifying)
	if classifyRequest(input) == requestChat {
		o.setState(StateChatting)
		return o.root.Reply(ctx, models.NewUserMessage("user", input))
	}

	o.setState(StatePlanning)
	plan, err := o.planner.Decompose(ctx, input)
	if err != nil {
		return models.Message{}, fmt.Errorf("decompose task: %w", err)
	}
	o.setPlan(plan)
	o.logger.Log("plan: %d steps, mode %s", len(plan.Steps), plan.ExecutionMode)

	o.setState(StateDispatching)
	if err := o.runPlan(ctx, plan); err != nil {
		return models.Message{}, fmt.Errorf("run plan: %w", err)
	}

	o.setState(StateAggregating)
	return o.aggregate(ctx, input, plan)
}

// requestKind is the outcome of the chat-vs-task classification.
type requestKind int

const (
	requestChat requestKind = iota
	requestComplex
)

// classifyRequest applies the cheap chat-vs-task heuristic: empty or very
// short input without instruction keywords is chat, everything else is a
// complex task. Misclassification is an accepted approximation.
func classifyRequest(input string) requestKind {
	content := strings.TrimSpace(input)
	if content == "" {
		return requestChat
	}
	if utf8.RuneCountInString(content) <= chatMaxRunes {
		lower := strings.ToLower(content)
		for _, kw := range instructionKeywords {
			if strings.Contains(lower, kw) {
				return requestComplex
			}
		}
		return requestChat
	}
	return requestComplex
}

// runPlan drives every subtask to a terminal status, honoring dependencies
// and the plan's execution mode.
func (o *Orchestrator) runPlan(ctx context.Context, plan *models.Plan) error {
	graph := NewGraph(plan)

	for !plan.AllTerminal() {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready := graph.Ready()
		if len(ready) == 0 {
			// No pending step can run; everything left is blocked by a
			// failure. Mark them and let aggregation report it.
			if !graph.FailDependents() {
				return fmt.Errorf("plan stalled: no runnable subtask and no failed dependency")
			}
			continue
		}

		if plan.ExecutionMode == models.ExecutionSerial {
			ready = ready[:1]
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range ready {
			step := plan.Step(id)
			step.Advance(models.SubtaskAssigning)
			g.Go(func() error {
				o.executeStep(gctx, step)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		graph.FailDependents()
	}
	return nil
}

// executeStep dispatches one subtask and records its outcome. Failures are
// captured on the subtask, never returned.
func (o *Orchestrator) executeStep(ctx context.Context, step *models.Subtask) {
	resp := o.dispatcher.Dispatch(ctx, step, string(step.AgentType), "")
	step.Result = resp.Text()
	if resp.Metadata["status"] == "failed" {
		step.Advance(models.SubtaskFailed)
		return
	}
	step.Advance(models.SubtaskDone)
}

// aggregate issues one final model call over all subtask results, failures
// included verbatim, to produce the user-facing answer.
func (o *Orchestrator) aggregate(ctx context.Context, input string, plan *models.Plan) (models.Message, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The user asked:\n%s\n\nThe task was split into %d subtasks. Their results:\n", input, len(plan.Steps))
	for _, s := range plan.Steps {
		fmt.Fprintf(&sb, "\n[Subtask %d: %s] (status: %s)\n%s\n", s.ID, s.Name, s.Status, s.Result)
	}
	sb.WriteString("\nIntegrate these results into one final answer for the user. Mention failures explicitly.")

	return o.root.Reply(ctx, models.NewUserMessage("user", sb.String()))
}
