// Package stream converts cumulative content snapshots into incremental
// updates. The model collaborator only ever exposes "latest full snapshot"
// messages, never true deltas, so reconstruction of "what's new since last
// time" happens here.
package stream

import (
	"fmt"
	"sync"

	"github.com/arihq/ari/pkg/models"
)

// Increment is one piece of newly arrived content extracted from a snapshot.
type Increment struct {
	// Agent is the producing agent's display name.
	Agent string
	// Kind is the content block kind this increment belongs to.
	Kind models.BlockType
	// Text is the appended suffix for text/thinking increments, the tool
	// result payload for tool_result increments, and the appended argument
	// suffix for tool_use increments.
	Text string
	// ToolID identifies the tool invocation for tool_use/tool_result kinds.
	ToolID string
	// ToolName is set on the first increment of a tool invocation.
	ToolName string
	// Param is the argument key a tool_use increment belongs to.
	Param string
	// FirstForTool marks the first increment seen for a tool invocation.
	FirstForTool bool
	// IsError marks a failed tool result.
	IsError bool
}

// Accumulator tracks, per (agent, content kind), how much cumulative content
// has already been delivered, and emits only the undelivered remainder.
// State for an agent is discarded whenever a new message id appears for that
// agent, so nothing leaks across turns.
type Accumulator struct {
	mu sync.Mutex
	// turn maps agent name to the message id currently being accumulated.
	turn map[string]string
	// delivered maps agent name to per-kind delivered text length.
	delivered map[string]map[models.BlockType]int
	// params maps tool invocation id to the last delivered value per key.
	params map[string]map[string]string
	// seenTools and seenResults record which invocation ids were announced.
	seenTools   map[string]bool
	seenResults map[string]bool
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	a.resetLocked()
	return a
}

// Reset discards all accumulated state. Used between independent runs.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

func (a *Accumulator) resetLocked() {
	a.turn = make(map[string]string)
	a.delivered = make(map[string]map[models.BlockType]int)
	a.params = make(map[string]map[string]string)
	a.seenTools = make(map[string]bool)
	a.seenResults = make(map[string]bool)
}

// TextDelta returns the suffix of full not yet delivered for (agent, kind)
// and records the new delivered length. A snapshot shorter than or equal to
// what was already delivered yields "" (stale or duplicate snapshot).
func (a *Accumulator) TextDelta(agent string, kind models.BlockType, full string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.textDeltaLocked(agent, kind, full)
}

func (a *Accumulator) textDeltaLocked(agent string, kind models.BlockType, full string) string {
	kinds := a.delivered[agent]
	if kinds == nil {
		kinds = make(map[models.BlockType]int)
		a.delivered[agent] = kinds
	}
	done := kinds[kind]
	if len(full) <= done {
		return ""
	}
	kinds[kind] = len(full)
	return full[done:]
}

// ParamDeltas diffs the current argument map of a tool invocation against the
// last delivered state. For a string value whose previous delivery is a
// prefix, only the appended suffix is returned; a replaced or non-string
// value is returned in full. Unchanged keys are omitted.
func (a *Accumulator) ParamDeltas(toolID string, input map[string]any) map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paramDeltasLocked(toolID, input)
}

func (a *Accumulator) paramDeltasLocked(toolID string, input map[string]any) map[string]string {
	state := a.params[toolID]
	if state == nil {
		state = make(map[string]string)
		a.params[toolID] = state
	}

	changes := make(map[string]string)
	for key, value := range input {
		newVal := fmt.Sprintf("%v", value)
		oldVal, had := state[key]
		if had && oldVal == newVal {
			continue
		}
		if _, isString := value.(string); isString && len(newVal) >= len(oldVal) && newVal[:len(oldVal)] == oldVal {
			if len(newVal) > len(oldVal) {
				changes[key] = newVal[len(oldVal):]
			}
		} else {
			// Value replaced or non-monotonic: deliver it whole.
			changes[key] = newVal
		}
		state[key] = newVal
	}
	return changes
}

// Observe extracts every increment carried by a cumulative message snapshot.
// A new message id for an agent resets that agent's per-turn state first.
func (a *Accumulator) Observe(msg models.Message) []Increment {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.turn[msg.Name] != msg.ID {
		a.turn[msg.Name] = msg.ID
		delete(a.delivered, msg.Name)
	}

	var out []Increment
	var text, thinking string
	for _, block := range msg.Content {
		switch block.Type {
		case models.BlockText:
			text += block.Text
		case models.BlockThinking:
			thinking += block.Text
		case models.BlockToolUse:
			out = append(out, a.toolUseIncrementsLocked(msg.Name, block)...)
		case models.BlockToolResult:
			if inc, ok := a.toolResultIncrementLocked(msg.Name, block); ok {
				out = append(out, inc)
			}
		}
	}

	// Text and thinking are diffed over the concatenation of their blocks so
	// that a snapshot splitting one logical run of text into more blocks does
	// not re-deliver the prefix.
	if d := a.textDeltaLocked(msg.Name, models.BlockThinking, thinking); d != "" {
		out = append(out, Increment{Agent: msg.Name, Kind: models.BlockThinking, Text: d})
	}
	if d := a.textDeltaLocked(msg.Name, models.BlockText, text); d != "" {
		out = append(out, Increment{Agent: msg.Name, Kind: models.BlockText, Text: d})
	}
	return out
}

func (a *Accumulator) toolUseIncrementsLocked(agent string, block models.ContentBlock) []Increment {
	if block.ID == "" {
		return nil
	}
	var out []Increment
	first := !a.seenTools[block.ID]
	if first {
		a.seenTools[block.ID] = true
		out = append(out, Increment{
			Agent:        agent,
			Kind:         models.BlockToolUse,
			ToolID:       block.ID,
			ToolName:     block.Name,
			FirstForTool: true,
		})
	}
	for key, delta := range a.paramDeltasLocked(block.ID, block.Input) {
		out = append(out, Increment{
			Agent:  agent,
			Kind:   models.BlockToolUse,
			ToolID: block.ID,
			Param:  key,
			Text:   delta,
		})
	}
	return out
}

func (a *Accumulator) toolResultIncrementLocked(agent string, block models.ContentBlock) (Increment, bool) {
	id := block.ToolUseID
	if id == "" || a.seenResults[id] {
		return Increment{}, false
	}
	a.seenResults[id] = true
	return Increment{
		Agent:   agent,
		Kind:    models.BlockToolResult,
		ToolID:  id,
		Text:    block.Content,
		IsError: block.IsError,
	}, true
}
