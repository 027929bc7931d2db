package orchestrator

import (
	"fmt"
	"sort"

	"github.com/arihq/ari/pkg/models"
)

// Graph gates subtask execution on dependency completion. Subtasks are nodes
// keyed by their 1-based plan id, edges are "blocked by" relationships.
type Graph struct {
	plan       *models.Plan
	dependents map[int][]int
}

// NewGraph builds the gating structure for a plan. Cycles and invalid ids
// are the planner's responsibility and were rejected at parse time.
func NewGraph(plan *models.Plan) *Graph {
	g := &Graph{
		plan:       plan,
		dependents: make(map[int][]int),
	}
	for _, s := range plan.Steps {
		for _, dep := range s.Dependencies {
			g.dependents[dep] = append(g.dependents[dep], s.ID)
		}
	}
	return g
}

// Ready returns the ids of pending subtasks whose dependencies have all
// reached done, in ascending id order.
func (g *Graph) Ready() []int {
	var ready []int
	for _, s := range g.plan.Steps {
		if s.Status != models.SubtaskPending {
			continue
		}
		satisfied := true
		for _, dep := range s.Dependencies {
			if step := g.plan.Step(dep); step == nil || step.Status != models.SubtaskDone {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, s.ID)
		}
	}
	sort.Ints(ready)
	return ready
}

// FailDependents marks every pending subtask downstream of a failed one as
// failed with a dependency-failure note, and reports whether anything
// changed. Dependents of failed subtasks never run; their absence is
// surfaced at aggregation instead of blocking the run.
func (g *Graph) FailDependents() bool {
	var any bool
	changed := true
	for changed {
		changed = false
		for _, s := range g.plan.Steps {
			if s.Status != models.SubtaskPending {
				continue
			}
			for _, dep := range s.Dependencies {
				depStep := g.plan.Step(dep)
				if depStep != nil && depStep.Status == models.SubtaskFailed {
					s.Advance(models.SubtaskFailed)
					s.Result = fmt.Sprintf("not executed: dependency subtask %d failed", dep)
					changed = true
					any = true
					break
				}
			}
		}
	}
	return any
}

// Dependents returns the ids of subtasks that depend on the given id.
func (g *Graph) Dependents(id int) []int {
	return g.dependents[id]
}
