package orchestrator

import (
	"github.com/arihq/ari/internal/tools"
	"github.com/arihq/ari/pkg/models"
)

// archetype describes one worker agent kind: the base system prompt and the
// capabilities it gets.
type archetype struct {
	prompt  string
	toolset func(workDir string) *tools.Set
}

// archetypes maps each agent type to its configuration. Unknown types fall
// back to general.
var archetypes = map[models.AgentType]archetype{
	models.AgentTypeGeneral: {
		prompt: "You are a capable general-purpose assistant. Complete the assigned task " +
			"thoroughly using the tools available to you.",
		toolset: func(workDir string) *tools.Set {
			return tools.NewSet(
				&tools.RunPython{WorkDir: workDir},
				&tools.RunShell{WorkDir: workDir},
				&tools.ReadTextFile{},
				&tools.WriteTextFile{},
				&tools.InsertTextFile{},
				&tools.WebFetch{},
			)
		},
	},
	models.AgentTypeMath: {
		prompt: "You are a mathematics specialist. Solve the assigned problem step by step. " +
			"Use code execution to verify every numeric result before reporting it.",
		toolset: func(workDir string) *tools.Set {
			return tools.NewSet(
				&tools.RunPython{WorkDir: workDir},
				&tools.RunShell{WorkDir: workDir},
			)
		},
	},
	models.AgentTypeSearch: {
		prompt: "You are a research specialist. Gather the information the task asks for " +
			"from the web and report it with sources.",
		toolset: func(workDir string) *tools.Set {
			return tools.NewSet(
				&tools.WebFetch{},
				&tools.RunPython{WorkDir: workDir},
			)
		},
	},
	models.AgentTypeCoding: {
		prompt: "You are a software engineering specialist. Write, modify and run code to " +
			"complete the assigned task. Verify your changes by executing them.",
		toolset: func(workDir string) *tools.Set {
			return tools.NewSet(
				&tools.RunPython{WorkDir: workDir},
				&tools.RunShell{WorkDir: workDir},
				&tools.ReadTextFile{},
				&tools.WriteTextFile{},
				&tools.InsertTextFile{},
			)
		},
	},
	models.AgentTypeAnalysis: {
		prompt: "You are an analysis specialist. Examine the provided material carefully " +
			"and produce a structured, evidence-backed assessment.",
		toolset: func(workDir string) *tools.Set {
			return tools.NewSet(
				&tools.ReadTextFile{},
				&tools.RunPython{WorkDir: workDir},
				&tools.WebFetch{},
			)
		},
	},
}

// archetypeFor resolves an agent type to its archetype, defaulting to general.
func archetypeFor(t models.AgentType) archetype {
	if a, ok := archetypes[t]; ok {
		return a
	}
	return archetypes[models.AgentTypeGeneral]
}
