package models

// SubtaskStatus is the numeric lifecycle state of a subtask. Values are wire
// stable: the task board and worker names round-trip them as integers.
type SubtaskStatus int

const (
	// SubtaskPending means the subtask has not been picked up.
	SubtaskPending SubtaskStatus = 0
	// SubtaskAssigning means a worker is being created for the subtask.
	SubtaskAssigning SubtaskStatus = 1
	// SubtaskRunning means a worker is executing the subtask.
	SubtaskRunning SubtaskStatus = 2
	// SubtaskDone means the subtask completed successfully.
	SubtaskDone SubtaskStatus = 3
	// SubtaskFailed means the subtask failed. Failures are surfaced to the
	// aggregation step, never retried automatically.
	SubtaskFailed SubtaskStatus = 4
)

// String returns a human-readable status label.
func (s SubtaskStatus) String() string {
	switch s {
	case SubtaskPending:
		return "pending"
	case SubtaskAssigning:
		return "assigning"
	case SubtaskRunning:
		return "running"
	case SubtaskDone:
		return "done"
	case SubtaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is an end state.
func (s SubtaskStatus) Terminal() bool {
	return s == SubtaskDone || s == SubtaskFailed
}

// AgentType is the closed set of worker archetypes a planner may recommend.
type AgentType string

const (
	AgentTypeGeneral  AgentType = "general"
	AgentTypeMath     AgentType = "math"
	AgentTypeSearch   AgentType = "search"
	AgentTypeCoding   AgentType = "coding"
	AgentTypeAnalysis AgentType = "analysis"
)

// Valid returns true if the agent type is a known archetype.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeGeneral, AgentTypeMath, AgentTypeSearch, AgentTypeCoding, AgentTypeAnalysis:
		return true
	default:
		return false
	}
}

// Subtask is one atomic unit of decomposed work.
type Subtask struct {
	// ID is 1-based and contiguous in planner output order.
	ID int `json:"id"`
	// Name is a short subtask label.
	Name string `json:"name,omitempty"`
	// Description is the full instruction handed to a worker.
	Description string `json:"description"`
	// AgentType is the recommended worker archetype.
	AgentType AgentType `json:"agent_type,omitempty"`
	// Dependencies lists subtask ids that must reach done first.
	Dependencies []int `json:"dependencies"`
	// Status is the current lifecycle state.
	Status SubtaskStatus `json:"status"`
	// Result holds the worker's final output once terminal.
	Result string `json:"result,omitempty"`
}

// Advance moves the subtask to the given status if that is a forward
// transition, returning whether the move was applied. Status never regresses
// except through an explicit plan reset.
func (t *Subtask) Advance(to SubtaskStatus) bool {
	if to < t.Status {
		return false
	}
	t.Status = to
	return true
}

// ExecutionMode is the planner's recommendation for running a plan's steps.
type ExecutionMode string

const (
	// ExecutionSerial runs steps strictly one at a time.
	ExecutionSerial ExecutionMode = "serial"
	// ExecutionParallel runs dependency-free steps concurrently.
	ExecutionParallel ExecutionMode = "parallel"
)

// Plan is an ordered list of subtasks plus the recommended execution mode.
type Plan struct {
	Steps         []*Subtask    `json:"steps"`
	ExecutionMode ExecutionMode `json:"execution_mode"`
}

// Step returns the subtask with the given id, or nil if out of range.
func (p *Plan) Step(id int) *Subtask {
	if id < 1 || id > len(p.Steps) {
		return nil
	}
	return p.Steps[id-1]
}

// AllTerminal reports whether every step reached done or failed.
func (p *Plan) AllTerminal() bool {
	for _, s := range p.Steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

// Reset returns every step to pending and clears results. This is the one
// sanctioned status regression, used when a new plan replaces the board.
func (p *Plan) Reset() {
	for _, s := range p.Steps {
		s.Status = SubtaskPending
		s.Result = ""
	}
}
