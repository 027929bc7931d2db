package stream

import (
	"strings"
	"testing"

	"github.com/arihq/ari/pkg/models"
)

func snapshotMsg(id, name string, blocks ...models.ContentBlock) models.Message {
	return models.Message{ID: id, Name: name, Role: models.RoleAssistant, Content: blocks}
}

func TestTextDeltaGrowth(t *testing.T) {
	a := NewAccumulator()

	if d := a.TextDelta("Ari", models.BlockText, "Hel"); d != "Hel" {
		t.Errorf("first delta = %q, want %q", d, "Hel")
	}
	if d := a.TextDelta("Ari", models.BlockText, "Hello"); d != "lo" {
		t.Errorf("second delta = %q, want %q", d, "lo")
	}
	// Duplicate snapshot delivers nothing.
	if d := a.TextDelta("Ari", models.BlockText, "Hello"); d != "" {
		t.Errorf("duplicate delta = %q, want empty", d)
	}
	// Stale (shorter) snapshot delivers nothing and keeps state.
	if d := a.TextDelta("Ari", models.BlockText, "Hel"); d != "" {
		t.Errorf("stale delta = %q, want empty", d)
	}
	if d := a.TextDelta("Ari", models.BlockText, "Hello!"); d != "!" {
		t.Errorf("post-stale delta = %q, want %q", d, "!")
	}
}

func TestTextDeltaIsolatesAgentsAndKinds(t *testing.T) {
	a := NewAccumulator()

	a.TextDelta("Ari", models.BlockText, "abc")
	if d := a.TextDelta("Planning", models.BlockText, "abc"); d != "abc" {
		t.Errorf("other agent delta = %q, want full text", d)
	}
	if d := a.TextDelta("Ari", models.BlockThinking, "abc"); d != "abc" {
		t.Errorf("other kind delta = %q, want full text", d)
	}
}

// The core incremental-delivery property: concatenating all deltas from any
// growing snapshot chain S1 ⊆ S2 ⊆ ... ⊆ Sn reproduces Sn exactly.
func TestObserveReconstructsFinalText(t *testing.T) {
	a := NewAccumulator()
	full := "The quick brown fox jumps over the lazy dog"

	var got strings.Builder
	for i := 1; i <= len(full); i += 3 {
		end := i + 2
		if end > len(full) {
			end = len(full)
		}
		msg := snapshotMsg("m1", "Ari", models.TextBlock(full[:end]))
		for _, inc := range a.Observe(msg) {
			if inc.Kind == models.BlockText {
				got.WriteString(inc.Text)
			}
		}
	}
	if got.String() != full {
		t.Errorf("reconstructed %q, want %q", got.String(), full)
	}
}

func TestObserveResetsOnNewMessageID(t *testing.T) {
	a := NewAccumulator()

	a.Observe(snapshotMsg("m1", "Ari", models.TextBlock("first turn")))
	incs := a.Observe(snapshotMsg("m2", "Ari", models.TextBlock("second")))

	if len(incs) != 1 || incs[0].Text != "second" {
		t.Errorf("new-turn increments = %+v, want full new text", incs)
	}
}

func TestObserveConcatenatesSplitBlocks(t *testing.T) {
	a := NewAccumulator()

	a.Observe(snapshotMsg("m1", "Ari", models.TextBlock("hello ")))
	// Later snapshot splits the same logical text into two blocks.
	incs := a.Observe(snapshotMsg("m1", "Ari",
		models.TextBlock("hello "), models.TextBlock("world")))

	if len(incs) != 1 || incs[0].Text != "world" {
		t.Errorf("increments = %+v, want only the appended text", incs)
	}
}

func TestObserveSeparatesThinkingFromText(t *testing.T) {
	a := NewAccumulator()

	incs := a.Observe(snapshotMsg("m1", "Ari",
		models.ThinkingBlock("pondering"), models.TextBlock("answer")))

	var kinds []models.BlockType
	for _, inc := range incs {
		kinds = append(kinds, inc.Kind)
	}
	if len(incs) != 2 || kinds[0] != models.BlockThinking || kinds[1] != models.BlockText {
		t.Errorf("increments = %+v, want one thinking then one text", incs)
	}
}

func TestParamDeltasPrefixGrowth(t *testing.T) {
	a := NewAccumulator()

	d1 := a.ParamDeltas("tu_1", map[string]any{"code": "pri"})
	if d1["code"] != "pri" {
		t.Errorf("first delta = %v, want full value", d1)
	}
	d2 := a.ParamDeltas("tu_1", map[string]any{"code": "print(5)"})
	if d2["code"] != "nt(5)" {
		t.Errorf("growth delta = %v, want suffix only", d2)
	}
	// Unchanged value: no delta at all.
	d3 := a.ParamDeltas("tu_1", map[string]any{"code": "print(5)"})
	if len(d3) != 0 {
		t.Errorf("unchanged delta = %v, want empty", d3)
	}
	// Replaced value: delivered whole.
	d4 := a.ParamDeltas("tu_1", map[string]any{"code": "echo hi"})
	if d4["code"] != "echo hi" {
		t.Errorf("replacement delta = %v, want full value", d4)
	}
}

func TestParamDeltasNewKeysAppearOverTime(t *testing.T) {
	a := NewAccumulator()

	a.ParamDeltas("tu_1", map[string]any{"file_path": "/tmp/x"})
	d := a.ParamDeltas("tu_1", map[string]any{"file_path": "/tmp/x", "content": "abc"})
	if len(d) != 1 || d["content"] != "abc" {
		t.Errorf("delta = %v, want only the new key", d)
	}
}

func TestObserveAnnouncesToolOnce(t *testing.T) {
	a := NewAccumulator()

	use := models.ContentBlock{Type: models.BlockToolUse, ID: "tu_1", Name: "run_python", Input: map[string]any{"code": "1+"}}
	incs := a.Observe(snapshotMsg("m1", "Ari", use))

	var first, params int
	for _, inc := range incs {
		if inc.FirstForTool {
			first++
			if inc.ToolName != "run_python" {
				t.Errorf("announcement tool name = %q", inc.ToolName)
			}
		} else if inc.Param != "" {
			params++
		}
	}
	if first != 1 || params != 1 {
		t.Errorf("got %d announcements and %d param deltas, want 1 and 1", first, params)
	}

	// Same invocation in the next snapshot: only argument growth.
	use.Input = map[string]any{"code": "1+1"}
	incs = a.Observe(snapshotMsg("m1", "Ari", use))
	for _, inc := range incs {
		if inc.FirstForTool {
			t.Error("tool announced twice")
		}
	}
	if len(incs) != 1 || incs[0].Text != "1" {
		t.Errorf("param increments = %+v, want single suffix %q", incs, "1")
	}
}

func TestObserveDeduplicatesToolResults(t *testing.T) {
	a := NewAccumulator()

	result := models.ContentBlock{Type: models.BlockToolResult, ToolUseID: "tu_1", Content: "2", IsError: false}
	incs := a.Observe(snapshotMsg("m2", "Ari", result))
	if len(incs) != 1 || incs[0].Kind != models.BlockToolResult || incs[0].Text != "2" {
		t.Fatalf("increments = %+v, want one tool result", incs)
	}

	if incs := a.Observe(snapshotMsg("m2", "Ari", result)); len(incs) != 0 {
		t.Errorf("repeated result produced %+v, want nothing", incs)
	}
}

func TestResetClearsAllState(t *testing.T) {
	a := NewAccumulator()
	a.Observe(snapshotMsg("m1", "Ari", models.TextBlock("abc")))
	a.Reset()

	incs := a.Observe(snapshotMsg("m1", "Ari", models.TextBlock("abc")))
	if len(incs) != 1 || incs[0].Text != "abc" {
		t.Errorf("post-reset increments = %+v, want full redelivery", incs)
	}
}
