package models

import "testing"

func TestAdvanceNeverRegresses(t *testing.T) {
	s := &Subtask{ID: 1}

	if !s.Advance(SubtaskRunning) {
		t.Fatal("forward transition rejected")
	}
	if s.Advance(SubtaskPending) {
		t.Error("backward transition accepted")
	}
	if s.Status != SubtaskRunning {
		t.Errorf("status = %s after rejected regression", s.Status)
	}
	if !s.Advance(SubtaskDone) {
		t.Error("terminal transition rejected")
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[SubtaskStatus]bool{
		SubtaskPending:   false,
		SubtaskAssigning: false,
		SubtaskRunning:   false,
		SubtaskDone:      true,
		SubtaskFailed:    true,
	} {
		if status.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, status.Terminal(), want)
		}
	}
}

func TestPlanStepLookup(t *testing.T) {
	p := &Plan{Steps: []*Subtask{{ID: 1}, {ID: 2}}}

	if p.Step(1) != p.Steps[0] || p.Step(2) != p.Steps[1] {
		t.Error("Step() lookup broken")
	}
	if p.Step(0) != nil || p.Step(3) != nil {
		t.Error("out-of-range Step() not nil")
	}
}

func TestPlanReset(t *testing.T) {
	p := &Plan{Steps: []*Subtask{
		{ID: 1, Status: SubtaskDone, Result: "x"},
		{ID: 2, Status: SubtaskFailed, Result: "y"},
	}}
	if !p.AllTerminal() {
		t.Fatal("plan should be terminal")
	}
	p.Reset()
	for _, s := range p.Steps {
		if s.Status != SubtaskPending || s.Result != "" {
			t.Errorf("step %d not reset: %+v", s.ID, s)
		}
	}
}

func TestAgentTypeValid(t *testing.T) {
	for _, at := range []AgentType{AgentTypeGeneral, AgentTypeMath, AgentTypeSearch, AgentTypeCoding, AgentTypeAnalysis} {
		if !at.Valid() {
			t.Errorf("%s reported invalid", at)
		}
	}
	if AgentType("wizard").Valid() {
		t.Error("unknown type reported valid")
	}
}
