package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/arihq/ari/internal/tools"
	"github.com/arihq/ari/pkg/models"
)

// defaultMaxIterations bounds the think/act loop of one reply.
const defaultMaxIterations = 10

// Registrar accepts runtimes into a run-scoped collection. The registry
// package implements it; taking the interface here keeps spawned workers
// discoverable without a dependency in the other direction.
type Registrar interface {
	Register(rt *Runtime)
}

// Sink receives the stream events an agent emits while replying.
type Sink func(models.StreamEvent)

// RuntimeConfig assembles a Runtime.
type RuntimeConfig struct {
	// Name is the display name, used to route this agent's messages.
	Name string
	// System is the system prompt.
	System string
	// Model is the provider client.
	Model ModelClient
	// Tools is the capability set, nil for a tool-less agent.
	Tools *tools.Set
	// MaxIterations caps how many model turns one reply may take.
	// Zero means the default.
	MaxIterations int
	// MaxTokens caps one model turn's output. Zero means the provider default.
	MaxTokens int
}

// Runtime drives one agent: it holds the conversation history, streams each
// model turn's cumulative snapshots to attached sinks, executes requested
// tools between turns, and closes every turn with exactly one final event.
type Runtime struct {
	id     string
	name   string
	system string
	model  ModelClient
	tools  *tools.Set

	maxIterations int
	maxTokens     int

	mu      sync.Mutex
	sinks   []Sink
	history []models.Message
}

// NewRuntime creates an agent runtime from the given configuration.
func NewRuntime(cfg RuntimeConfig) *Runtime {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	return &Runtime{
		id:            uuid.New().String(),
		name:          cfg.Name,
		system:        cfg.System,
		model:         cfg.Model,
		tools:         cfg.Tools,
		maxIterations: maxIter,
		maxTokens:     cfg.MaxTokens,
	}
}

// ID returns the runtime's unique id.
func (r *Runtime) ID() string { return r.id }

// Name returns the agent's display name.
func (r *Runtime) Name() string { return r.name }

// AttachSink adds a stream consumer. Sinks attached mid-reply begin
// receiving from the next event onward.
func (r *Runtime) AttachSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// History returns a copy of the conversation so far.
func (r *Runtime) History() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Runtime) emit(ev models.StreamEvent) {
	r.mu.Lock()
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()
	for _, s := range sinks {
		s(ev)
	}
}

func (r *Runtime) appendHistory(msgs ...models.Message) {
	r.mu.Lock()
	r.history = append(r.history, msgs...)
	r.mu.Unlock()
}

// Reply runs the think/act loop for one user input and returns the agent's
// last assistant message. Every model turn streams through the attached
// sinks; tool invocations requested by the model are executed between turns
// and their results fed back into the conversation.
func (r *Runtime) Reply(ctx context.Context, input models.Message) (models.Message, error) {
	r.appendHistory(input)

	for iter := 0; iter < r.maxIterations; iter++ {
		msg, err := r.turn(ctx)
		if err != nil {
			return models.Message{}, err
		}
		r.appendHistory(msg)

		uses := msg.ToolUses()
		if len(uses) == 0 {
			return msg, nil
		}

		results := r.runTools(ctx, uses)
		r.appendHistory(results)
		r.emit(models.StreamEvent{Message: results, Final: true})
	}

	// Iteration budget exhausted mid-conversation. Close the reply with an
	// explicit notice so downstream consumers see a completed turn.
	notice := models.NewMessage(r.name, models.RoleAssistant,
		models.TextBlock(fmt.Sprintf("[reply truncated after %d iterations]", r.maxIterations)))
	r.appendHistory(notice)
	r.emit(models.StreamEvent{Message: notice, Final: true})
	return notice, nil
}

// turn runs one streamed model call. It publishes cumulative non-final
// snapshots as they arrive and exactly one final event when the turn ends.
func (r *Runtime) turn(ctx context.Context) (models.Message, error) {
	req := ModelRequest{
		System:    r.system,
		Messages:  r.History(),
		Tools:     r.tools.Schemas(),
		MaxTokens: r.maxTokens,
	}

	stream, err := r.model.Stream(ctx, req)
	if err != nil {
		return models.Message{}, fmt.Errorf("start model turn: %w", err)
	}

	msg := models.NewMessage(r.name, models.RoleAssistant)
	for {
		select {
		case snapshot, ok := <-stream.Snapshots():
			if !ok {
				if serr := stream.Err(); serr != nil {
					interrupted := msg.Snapshot(append(msg.Content,
						models.TextBlock("[turn interrupted]")))
					r.emit(models.StreamEvent{Message: interrupted, Final: true})
					return models.Message{}, fmt.Errorf("model turn: %w", serr)
				}
				r.emit(models.StreamEvent{Message: msg, Final: true})
				return msg, nil
			}
			msg = msg.Snapshot(snapshot)
			r.emit(models.StreamEvent{Message: msg, Final: false})
		case <-ctx.Done():
			interrupted := msg.Snapshot(append(msg.Content,
				models.TextBlock("[turn interrupted]")))
			r.emit(models.StreamEvent{Message: interrupted, Final: true})
			return models.Message{}, ctx.Err()
		}
	}
}

// runTools executes the requested tool invocations in order and packages the
// outcomes as one tool-result message.
func (r *Runtime) runTools(ctx context.Context, uses []models.ContentBlock) models.Message {
	var blocks []models.ContentBlock
	for _, use := range uses {
		resp := r.tools.Execute(ctx, use.Name, use.Input)
		blocks = append(blocks, models.ContentBlock{
			Type:      models.BlockToolResult,
			ToolUseID: use.ID,
			Content:   resp.Text(),
			IsError:   resp.Metadata["status"] == "failed",
			Metadata:  resp.Metadata,
		})
	}
	msg := models.NewMessage(r.name, models.RoleUser, blocks...)
	return msg
}
