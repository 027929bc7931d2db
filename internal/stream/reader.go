package stream

import (
	"context"

	"github.com/arihq/ari/pkg/models"
)

// ToolCall is one tool invocation observed in a turn, reported once its
// identity is known. Argument growth is delivered through Updates.
type ToolCall struct {
	ID   string
	Name string
}

// ToolUpdate is an incremental change to one tool-call argument.
type ToolUpdate struct {
	ToolID string
	Param  string
	// Delta is the appended suffix for append-only string growth, or the
	// full value when it was replaced.
	Delta string
}

// Reader is a per-turn view over one agent's stream events that a caller can
// iterate by content kind. It consumes the event sequence in the background
// and fans increments out into independent per-kind queues, so the caller may
// drain any subset of kinds in any order without stalling the producer.
type Reader struct {
	text     *Queue[string]
	thinking *Queue[string]
	tools    *Queue[ToolCall]
	updates  *Queue[ToolUpdate]

	done  chan struct{}
	final models.Message
}

// NewReader starts reading the given per-turn event sequence. The sequence
// must follow the stream contract: cumulative non-final snapshots followed by
// final events, ending when the channel closes.
func NewReader(events <-chan models.StreamEvent) *Reader {
	r := &Reader{
		text:     NewQueue[string](),
		thinking: NewQueue[string](),
		tools:    NewQueue[ToolCall](),
		updates:  NewQueue[ToolUpdate](),
		done:     make(chan struct{}),
	}
	go r.consume(events)
	return r
}

func (r *Reader) consume(events <-chan models.StreamEvent) {
	defer func() {
		r.text.Close()
		r.thinking.Close()
		r.tools.Close()
		r.updates.Close()
		close(r.done)
	}()

	acc := NewAccumulator()
	for ev := range events {
		for _, inc := range acc.Observe(ev.Message) {
			switch inc.Kind {
			case models.BlockText:
				r.text.Push(inc.Text)
			case models.BlockThinking:
				r.thinking.Push(inc.Text)
			case models.BlockToolUse:
				if inc.FirstForTool {
					r.tools.Push(ToolCall{ID: inc.ToolID, Name: inc.ToolName})
				} else {
					r.updates.Push(ToolUpdate{ToolID: inc.ToolID, Param: inc.Param, Delta: inc.Text})
				}
			}
		}
		if ev.Final {
			r.final = ev.Message
		}
	}
}

// Text returns the next undelivered text increment. ok is false once the
// turn has ended and all text increments were delivered.
func (r *Reader) Text(ctx context.Context) (string, bool) {
	return r.text.Pop(ctx)
}

// Thinking returns the next undelivered thinking increment.
func (r *Reader) Thinking(ctx context.Context) (string, bool) {
	return r.thinking.Pop(ctx)
}

// NextToolCall returns the next newly observed tool invocation.
func (r *Reader) NextToolCall(ctx context.Context) (ToolCall, bool) {
	return r.tools.Pop(ctx)
}

// NextToolUpdate returns the next incremental tool-argument change.
func (r *Reader) NextToolUpdate(ctx context.Context) (ToolUpdate, bool) {
	return r.updates.Pop(ctx)
}

// Final blocks until the turn ends and returns the last final message seen.
func (r *Reader) Final(ctx context.Context) (models.Message, error) {
	select {
	case <-r.done:
		return r.final, nil
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}
