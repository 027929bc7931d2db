package tui

import (
	"testing"

	"github.com/arihq/ari/pkg/models"
)

func boardWithSteps() *TasksPanel {
	p := NewTasksPanel()
	p.SetPlan([]BoardStep{
		{ID: 1, Name: "research", Status: models.SubtaskPending},
		{ID: 2, Name: "write", Dependencies: []int{1}, Status: models.SubtaskPending},
	}, "serial")
	return p
}

func TestSetStatusUpdatesRow(t *testing.T) {
	p := boardWithSteps()

	p.SetStatus(1, models.SubtaskRunning)
	if p.steps[0].Status != models.SubtaskRunning {
		t.Errorf("step 1 status = %s", p.steps[0].Status)
	}
	if p.steps[1].Status != models.SubtaskPending {
		t.Errorf("step 2 status changed to %s", p.steps[1].Status)
	}
}

func TestSetStatusTerminalSticks(t *testing.T) {
	p := boardWithSteps()

	p.SetStatus(1, models.SubtaskDone)
	p.SetStatus(1, models.SubtaskRunning)
	if p.steps[0].Status != models.SubtaskDone {
		t.Errorf("terminal status reopened: %s", p.steps[0].Status)
	}
}

func TestSetStatusUnknownIDIsIgnored(t *testing.T) {
	p := boardWithSteps()
	p.SetStatus(99, models.SubtaskDone)

	terminal, total := p.Progress()
	if terminal != 0 || total != 2 {
		t.Errorf("progress = %d/%d, want 0/2", terminal, total)
	}
}

func TestProgressCountsTerminalSteps(t *testing.T) {
	p := boardWithSteps()
	p.SetStatus(1, models.SubtaskDone)
	p.SetStatus(2, models.SubtaskFailed)

	terminal, total := p.Progress()
	if terminal != 2 || total != 2 {
		t.Errorf("progress = %d/%d, want 2/2", terminal, total)
	}
}
