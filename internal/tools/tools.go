// Package tools provides the tool-execution collaborators handed to agents.
// Each tool is an async function from typed arguments to a ToolResponse whose
// content surfaces in the calling agent's stream as a tool_result block.
package tools

import (
	"context"
	"fmt"

	"github.com/arihq/ari/pkg/models"
)

// Schema describes a tool to the model provider.
type Schema struct {
	// Name is the identifier the model uses to invoke the tool.
	Name string
	// Description tells the model what the tool does.
	Description string
	// Properties is the JSON-schema property map for the input object.
	Properties map[string]any
	// Required lists the property names that must be present.
	Required []string
}

// Tool is one executable capability available to an agent.
type Tool interface {
	// Schema returns the tool's model-facing description.
	Schema() Schema
	// Execute runs the tool. Failures are reported through the returned
	// error; the runtime converts them into error tool_result blocks.
	Execute(ctx context.Context, input map[string]any) (models.ToolResponse, error)
}

// Set is an ordered collection of tools keyed by name.
type Set struct {
	ordered []Tool
	byName  map[string]Tool
}

// NewSet builds a set from the given tools. Later duplicates override
// earlier ones by name.
func NewSet(list ...Tool) *Set {
	s := &Set{byName: make(map[string]Tool)}
	for _, t := range list {
		s.Add(t)
	}
	return s
}

// Add registers a tool, replacing any existing tool with the same name.
func (s *Set) Add(t Tool) {
	name := t.Schema().Name
	if _, exists := s.byName[name]; !exists {
		s.ordered = append(s.ordered, t)
	} else {
		for i, existing := range s.ordered {
			if existing.Schema().Name == name {
				s.ordered[i] = t
				break
			}
		}
	}
	s.byName[name] = t
}

// Get returns the tool with the given name, or nil.
func (s *Set) Get(name string) Tool {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Schemas returns the schemas of all tools in registration order.
func (s *Set) Schemas() []Schema {
	if s == nil {
		return nil
	}
	schemas := make([]Schema, 0, len(s.ordered))
	for _, t := range s.ordered {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

// Execute dispatches an invocation to the named tool. Unknown tool names and
// execution errors both come back as error responses rather than Go errors,
// so a model hallucinating a tool name gets a recoverable result.
func (s *Set) Execute(ctx context.Context, name string, input map[string]any) models.ToolResponse {
	t := s.Get(name)
	if t == nil {
		return errorResponse(fmt.Sprintf("unknown tool: %s", name))
	}
	resp, err := t.Execute(ctx, input)
	if err != nil {
		return errorResponse(fmt.Sprintf("%s failed: %v", name, err))
	}
	return resp
}

func errorResponse(text string) models.ToolResponse {
	return models.ToolResponse{
		Content:  []models.ContentBlock{models.TextBlock(text)},
		Metadata: map[string]string{"status": "failed"},
	}
}

func textResponse(text string) models.ToolResponse {
	return models.ToolResponse{
		Content: []models.ContentBlock{models.TextBlock(text)},
	}
}

// stringArg extracts a string argument, tolerating missing keys.
func stringArg(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return v
}

// intArg extracts an integer argument. JSON numbers decode as float64.
func intArg(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
