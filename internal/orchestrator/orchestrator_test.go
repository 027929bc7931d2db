package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/arihq/ari/internal/agent"
	"github.com/arihq/ari/pkg/models"
)

// routedModel answers each call with route(req), as a single text snapshot.
type routedModel struct {
	route func(req agent.ModelRequest) (string, error)

	mu    sync.Mutex
	calls []agent.ModelRequest
}

type oneShotStream struct {
	text string
	ch   chan []models.ContentBlock
	once sync.Once
}

func (s *oneShotStream) Snapshots() <-chan []models.ContentBlock {
	s.once.Do(func() {
		s.ch = make(chan []models.ContentBlock, 1)
		s.ch <- []models.ContentBlock{models.TextBlock(s.text)}
		close(s.ch)
	})
	return s.ch
}

func (s *oneShotStream) Err() error { return nil }

func (m *routedModel) Stream(_ context.Context, req agent.ModelRequest) (agent.ModelStream, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	text, err := m.route(req)
	if err != nil {
		return nil, err
	}
	return &oneShotStream{text: text}, nil
}

func (m *routedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func lastUserText(req agent.ModelRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == models.RoleUser {
			return req.Messages[i].Text()
		}
	}
	return ""
}

func TestClassifyRequest(t *testing.T) {
	tests := []struct {
		input string
		want  requestKind
	}{
		{"", requestChat},
		{"   ", requestChat},
		{"hi", requestChat},
		{"你好", requestChat},
		{"帮我算一下", requestComplex},
		{"请计算1+1", requestComplex},
		{"search golang", requestComplex},
		{"ok thanks", requestChat},
		{"I need a summary of this very long document about distributed systems", requestComplex},
	}
	for _, tt := range tests {
		if got := classifyRequest(tt.input); got != tt.want {
			t.Errorf("classifyRequest(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParsePlanValid(t *testing.T) {
	raw := `Here is the plan:
{"steps":[
  {"id":1,"name":"a","description":"do a","dependencies":[],"agent_type":"math"},
  {"id":2,"name":"b","description":"do b","dependencies":[1],"agent_type":"bogus"}
],"execution_mode":"serial"}`

	plan, notes, err := parsePlan(raw)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(plan.Steps))
	}
	if plan.ExecutionMode != models.ExecutionSerial {
		t.Errorf("execution mode = %s, want serial", plan.ExecutionMode)
	}
	if plan.Steps[0].AgentType != models.AgentTypeMath {
		t.Errorf("step 1 agent type = %s, want math", plan.Steps[0].AgentType)
	}
	if plan.Steps[1].AgentType != models.AgentTypeGeneral {
		t.Errorf("step 2 agent type = %s, want general fallback", plan.Steps[1].AgentType)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "bogus") {
		t.Errorf("notes = %v, want one about unknown agent type", notes)
	}
}

func TestParsePlanRepairsTruncatedJSON(t *testing.T) {
	// Trailing comma and missing closing brackets, as a model under a token
	// limit tends to produce.
	raw := `{"steps":[{"id":1,"description":"do a","dependencies":[],},{"id":2,"description":"do b","dependencies":[1]}],"execution_mode":"parallel"}`

	plan, _, err := parsePlan(raw)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(plan.Steps))
	}
}

func TestParsePlanDropsInvalidDependencies(t *testing.T) {
	raw := `{"steps":[
  {"id":1,"description":"a","dependencies":[7,1]},
  {"id":2,"description":"b","dependencies":[1]}
],"execution_mode":"parallel"}`

	plan, notes, err := parsePlan(raw)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if len(plan.Steps[0].Dependencies) != 0 {
		t.Errorf("step 1 dependencies = %v, want none after dropping 7 and self-ref 1", plan.Steps[0].Dependencies)
	}
	if len(notes) != 2 {
		t.Errorf("got %d notes, want 2 (one per dropped id)", len(notes))
	}
}

func TestParsePlanRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "I could not produce a plan, sorry."},
		{"empty steps", `{"steps":[],"execution_mode":"serial"}`},
		{"non-contiguous ids", `{"steps":[{"id":1,"description":"a"},{"id":3,"description":"b"}],"execution_mode":"serial"}`},
		{"cycle", `{"steps":[{"id":1,"description":"a","dependencies":[2]},{"id":2,"description":"b","dependencies":[1]}],"execution_mode":"serial"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parsePlan(tt.raw); err == nil {
				t.Error("parsePlan() error = nil, want failure")
			}
		})
	}
}

func TestDecomposeFallsBackToDefaultPlan(t *testing.T) {
	model := &routedModel{route: func(agent.ModelRequest) (string, error) {
		return "no json here", nil
	}}
	planner := NewPlanner(model, nil, NopLogger())

	plan, err := planner.Decompose(context.Background(), "write a report")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("fallback plan has %d steps, want 3", len(plan.Steps))
	}
	for i, s := range plan.Steps {
		if s.ID != i+1 {
			t.Errorf("step %d has id %d", i, s.ID)
		}
	}
	if got := plan.Steps[1].Dependencies; len(got) != 1 || got[0] != 1 {
		t.Errorf("step 2 dependencies = %v, want [1]", got)
	}
}

func TestGraphReadyAndFailurePropagation(t *testing.T) {
	plan := &models.Plan{Steps: []*models.Subtask{
		{ID: 1},
		{ID: 2},
		{ID: 3, Dependencies: []int{1}},
		{ID: 4, Dependencies: []int{3}},
	}}
	graph := NewGraph(plan)

	if got := graph.Ready(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Ready() = %v, want [1 2]", got)
	}

	plan.Step(1).Advance(models.SubtaskFailed)
	plan.Step(2).Advance(models.SubtaskDone)

	if !graph.FailDependents() {
		t.Fatal("FailDependents() = false, want cascade")
	}
	if plan.Step(3).Status != models.SubtaskFailed {
		t.Errorf("step 3 status = %s, want failed", plan.Step(3).Status)
	}
	if plan.Step(4).Status != models.SubtaskFailed {
		t.Errorf("step 4 status = %s, want failed (transitively)", plan.Step(4).Status)
	}
	if !strings.Contains(plan.Step(3).Result, "dependency subtask 1 failed") {
		t.Errorf("step 3 result = %q, want dependency-failure note", plan.Step(3).Result)
	}
	if !plan.AllTerminal() {
		t.Error("plan not terminal after propagation")
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name  string
		reply models.Message
		want  string
	}{
		{
			"metadata wins",
			models.Message{Metadata: map[string]string{"status": "failed"}, Content: []models.ContentBlock{models.TextBlock("all good")}},
			"failed",
		},
		{
			"embedded tool result",
			models.Message{Content: []models.ContentBlock{
				{Type: models.BlockToolResult, Metadata: map[string]string{"status": "failed"}},
			}},
			"failed",
		},
		{
			"english keyword",
			models.Message{Content: []models.ContentBlock{models.TextBlock("TASK FAILED: no network access")}},
			"failed",
		},
		{
			"chinese keyword",
			models.Message{Content: []models.ContentBlock{models.TextBlock("任务失败：无法访问文件")}},
			"failed",
		},
		{
			"clean success",
			models.Message{Content: []models.ContentBlock{models.TextBlock("The answer is 42.")}},
			"success",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyOutcome(tt.reply); got != tt.want {
				t.Errorf("classifyOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatchNeverPropagatesErrors(t *testing.T) {
	model := &routedModel{route: func(agent.ModelRequest) (string, error) {
		return "", errors.New("provider down")
	}}
	d := NewDispatcher(model, nil, NopLogger())

	task := &models.Subtask{ID: 7, Description: "doomed", AgentType: models.AgentTypeGeneral}
	resp := d.Dispatch(context.Background(), task, "general", "")

	if resp.Metadata["status"] != "failed" {
		t.Errorf("status = %q, want failed", resp.Metadata["status"])
	}
	if resp.Metadata["task_id"] != "7" {
		t.Errorf("task_id = %q, want 7", resp.Metadata["task_id"])
	}
	if model.callCount() != 1 {
		t.Errorf("model called %d times, want exactly 1 (no retry)", model.callCount())
	}
	if !strings.Contains(resp.Text(), "provider down") {
		t.Errorf("response text %q does not carry the cause", resp.Text())
	}
}

// fivePlanJSON is the planner reply for the end-to-end scenario: three
// independent arithmetic steps, one more independent step, and a final step
// depending on step 4.
const fivePlanJSON = `{"steps":[
 {"id":1,"name":"add 2+3","description":"compute 2+3","dependencies":[],"agent_type":"math"},
 {"id":2,"name":"add 6+3","description":"compute 6+3","dependencies":[],"agent_type":"math"},
 {"id":3,"name":"add 4+3","description":"compute 4+3","dependencies":[],"agent_type":"math"},
 {"id":4,"name":"add 7+3","description":"compute 7+3","dependencies":[],"agent_type":"math"},
 {"id":5,"name":"add 3 to step 4","description":"add 3 to the result of step 4","dependencies":[4],"agent_type":"math"}
],"execution_mode":"parallel"}`

func TestHandleMessageEndToEnd(t *testing.T) {
	var (
		mu        sync.Mutex
		started   []string
		doneAt4   bool
		lateStart bool
	)

	model := &routedModel{}
	model.route = func(req agent.ModelRequest) (string, error) {
		if strings.Contains(req.System, "task planning expert") {
			return fivePlanJSON, nil
		}
		if strings.Contains(req.System, "coordinates a team") {
			// Aggregation call: echo the collected results.
			return "Results: " + lastUserText(req), nil
		}

		// Worker call.
		desc := lastUserText(req)
		mu.Lock()
		started = append(started, desc)
		if strings.Contains(desc, "result of step 4") && !doneAt4 {
			lateStart = true
		}
		mu.Unlock()

		switch {
		case strings.Contains(desc, "2+3"):
			return "5", nil
		case strings.Contains(desc, "6+3"):
			return "9", nil
		case strings.Contains(desc, "4+3"):
			return "7", nil
		case strings.Contains(desc, "7+3"):
			mu.Lock()
			doneAt4 = true
			mu.Unlock()
			return "10", nil
		case strings.Contains(desc, "result of step 4"):
			return "13", nil
		}
		return "", errors.New("unexpected worker request: " + desc)
	}

	orch := New(Config{Model: model})
	reply, err := orch.HandleMessage(context.Background(), "规划5个步骤，3个无依赖(2+3,6+3,4+3)，2个有依赖")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	plan := orch.Plan()
	if plan == nil || len(plan.Steps) != 5 {
		t.Fatalf("plan = %+v, want 5 steps", plan)
	}
	wantResults := []string{"5", "9", "7", "10", "13"}
	for i, s := range plan.Steps {
		if s.Status != models.SubtaskDone {
			t.Errorf("step %d status = %s, want done", s.ID, s.Status)
		}
		if s.Result != wantResults[i] {
			t.Errorf("step %d result = %q, want %q", s.ID, s.Result, wantResults[i])
		}
	}

	mu.Lock()
	if lateStart {
		t.Error("step 5 started before its dependency step 4 was done")
	}
	workerStarts := len(started)
	mu.Unlock()
	if workerStarts != 5 {
		t.Errorf("%d workers started, want 5", workerStarts)
	}

	for _, want := range wantResults {
		if !strings.Contains(reply.Text(), want) {
			t.Errorf("final answer %q missing result %q", reply.Text(), want)
		}
	}
	if orch.State() != StateIdle {
		t.Errorf("state = %s, want idle after completion", orch.State())
	}
}

func TestHandleMessageChatPath(t *testing.T) {
	model := &routedModel{route: func(req agent.ModelRequest) (string, error) {
		return "hello there", nil
	}}
	orch := New(Config{Model: model})

	reply, err := orch.HandleMessage(context.Background(), "hi")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply.Text() != "hello there" {
		t.Errorf("reply = %q, want chat answer", reply.Text())
	}
	if model.callCount() != 1 {
		t.Errorf("model called %d times, want 1 (no planning for chat)", model.callCount())
	}
	if orch.Plan() != nil {
		t.Error("chat path built a plan")
	}
}

func TestHandleMessageSurfacesFailures(t *testing.T) {
	planJSON := `{"steps":[
 {"id":1,"description":"step one","dependencies":[]},
 {"id":2,"description":"step two","dependencies":[1]}
],"execution_mode":"serial"}`

	model := &routedModel{}
	model.route = func(req agent.ModelRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "task planning expert"):
			return planJSON, nil
		case strings.Contains(req.System, "coordinates a team"):
			return "Summary: " + lastUserText(req), nil
		default:
			return "TASK FAILED: tooling unavailable", nil
		}
	}

	orch := New(Config{Model: model})
	reply, err := orch.HandleMessage(context.Background(), "please run the two step process")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	plan := orch.Plan()
	if plan.Step(1).Status != models.SubtaskFailed {
		t.Errorf("step 1 status = %s, want failed", plan.Step(1).Status)
	}
	if plan.Step(2).Status != models.SubtaskFailed {
		t.Errorf("step 2 status = %s, want failed via dependency", plan.Step(2).Status)
	}
	if !strings.Contains(reply.Text(), "TASK FAILED") {
		t.Error("aggregation did not surface the failure verbatim")
	}
	if !strings.Contains(reply.Text(), "not executed") {
		t.Error("aggregation did not surface the skipped dependent")
	}
}

func TestMaxTokensReachesModelRequests(t *testing.T) {
	model := &routedModel{route: func(req agent.ModelRequest) (string, error) {
		if req.MaxTokens != 2048 {
			t.Errorf("request max tokens = %d, want 2048", req.MaxTokens)
		}
		return "hello there", nil
	}}
	orch := New(Config{Model: model, MaxTokens: 2048})

	if _, err := orch.HandleMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if orch.planner.MaxTokens != 2048 {
		t.Errorf("planner max tokens = %d, want 2048", orch.planner.MaxTokens)
	}
	if orch.dispatcher.MaxTokens != 2048 {
		t.Errorf("dispatcher max tokens = %d, want 2048", orch.dispatcher.MaxTokens)
	}
}

func TestReconfigureAppliesOnNextRequest(t *testing.T) {
	model := &routedModel{route: func(agent.ModelRequest) (string, error) {
		return "ok", nil
	}}
	orch := New(Config{Model: model, WorkDir: "w0", WorkerMaxIterations: 5, MaxTokens: 1024})

	orch.Reconfigure("w1", 3, 512)
	if orch.dispatcher.WorkDir != "w0" {
		t.Fatal("reconfiguration applied before the next request")
	}

	if _, err := orch.HandleMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if orch.dispatcher.WorkDir != "w1" {
		t.Errorf("dispatcher work dir = %q, want %q", orch.dispatcher.WorkDir, "w1")
	}
	if orch.dispatcher.MaxIterations != 3 {
		t.Errorf("dispatcher max iterations = %d, want 3", orch.dispatcher.MaxIterations)
	}
	if orch.dispatcher.MaxTokens != 512 {
		t.Errorf("dispatcher max tokens = %d, want 512", orch.dispatcher.MaxTokens)
	}
	if orch.planner.MaxTokens != 512 {
		t.Errorf("planner max tokens = %d, want 512", orch.planner.MaxTokens)
	}
}
