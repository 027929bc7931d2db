package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the conversational role of a message.
type Role string

const (
	// RoleUser is a message originating from the human user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by an agent.
	RoleAssistant Role = "assistant"
	// RoleSystem is a message injected by the system (prompts, notices).
	RoleSystem Role = "system"
)

// BlockType identifies the kind of a content block.
type BlockType string

const (
	// BlockText is plain response text.
	BlockText BlockType = "text"
	// BlockThinking is the agent's reasoning text.
	BlockThinking BlockType = "thinking"
	// BlockToolUse is a tool invocation with (possibly partial) arguments.
	BlockToolUse BlockType = "tool_use"
	// BlockToolResult is the outcome of a tool invocation.
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of a message's content. It is a tagged union:
// which fields are meaningful depends on Type.
type ContentBlock struct {
	Type BlockType `json:"type"`
	// Text holds the content for text and thinking blocks.
	Text string `json:"text,omitempty"`
	// ID is the tool invocation id for tool_use blocks. It is stable across
	// successive streaming snapshots of the same turn.
	ID string `json:"id,omitempty"`
	// Name is the tool name for tool_use blocks.
	Name string `json:"name,omitempty"`
	// Input holds the tool arguments for tool_use blocks. During streaming it
	// may be partial: string values grow by suffix, keys appear over time.
	Input map[string]any `json:"input,omitempty"`
	// ToolUseID links a tool_result block back to its tool_use block.
	ToolUseID string `json:"tool_use_id,omitempty"`
	// Content is the payload for tool_result blocks.
	Content string `json:"content,omitempty"`
	// IsError marks a tool_result block as a failed invocation.
	IsError bool `json:"is_error,omitempty"`
	// Metadata carries structured tool_result annotations (task_id, status).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ThinkingBlock builds a thinking content block.
func ThinkingBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Text: text}
}

// Message is one turn's content, immutable after construction. Streaming
// updates never mutate a message in place: each cumulative snapshot is a new
// Message sharing the same ID with longer content.
type Message struct {
	// ID is an opaque unique token shared by all snapshots of one turn.
	ID string `json:"id"`
	// Name is the producing agent's display name, used for routing.
	Name string `json:"name"`
	// Role is the conversational role.
	Role Role `json:"role"`
	// Content is the ordered sequence of content blocks.
	Content []ContentBlock `json:"content"`
	// Metadata is an open key-value map (task_id, status, ...).
	Metadata map[string]string `json:"metadata,omitempty"`
	// Timestamp is when this message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and the given content.
func NewMessage(name string, role Role, content ...ContentBlock) Message {
	return Message{
		ID:        uuid.New().String(),
		Name:      name,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user-role message with a single text block.
func NewUserMessage(name, text string) Message {
	return NewMessage(name, RoleUser, TextBlock(text))
}

// Snapshot returns a copy of m with the given content, keeping the same id.
// This is how streaming producers publish cumulative updates.
func (m Message) Snapshot(content []ContentBlock) Message {
	m.Content = content
	return m
}

// Text concatenates the text of all text blocks.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// Thinking concatenates the text of all thinking blocks.
func (m Message) Thinking() string {
	var out string
	for _, b := range m.Content {
		if b.Type == BlockThinking {
			out += b.Text
		}
	}
	return out
}

// ToolUses returns all tool_use blocks in content order.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// StreamEvent is one (cumulative message, is-final) update emitted during an
// agent's turn. For a single message id, zero or more non-final events with
// monotonically growing content precede exactly one final event.
type StreamEvent struct {
	Message Message
	Final   bool
}

// ToolResponse is the outcome a tool returns to its calling agent.
type ToolResponse struct {
	// Content is the blocks surfaced into the agent's stream.
	Content []ContentBlock `json:"content"`
	// Metadata carries structured outcome tags (task_id, status).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Text concatenates the text of all text blocks in the response.
func (r ToolResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}
