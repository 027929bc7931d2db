// Package agent implements the runtime that drives a single LLM agent through
// its think/act loop. An agent streams cumulative message snapshots to any
// attached sinks while it works, calls tools between model turns, and ends
// every reply with exactly one final message.
package agent

import (
	"context"

	"github.com/arihq/ari/internal/tools"
	"github.com/arihq/ari/pkg/models"
)

// ModelRequest is one model invocation: the system prompt, the conversation
// so far, and the tools the model may call.
type ModelRequest struct {
	System    string
	Messages  []models.Message
	Tools     []tools.Schema
	MaxTokens int
}

// ModelStream is a live model turn. Snapshots yields cumulative content
// states, not deltas: each received slice supersedes the previous one and
// contains everything produced so far. The channel closes when the turn ends;
// Err reports why, if the turn failed.
type ModelStream interface {
	Snapshots() <-chan []models.ContentBlock
	Err() error
}

// ModelClient is the provider boundary. Implementations translate between
// the message types here and a concrete provider API.
type ModelClient interface {
	Stream(ctx context.Context, req ModelRequest) (ModelStream, error)
}
