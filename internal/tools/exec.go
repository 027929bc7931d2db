package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/arihq/ari/pkg/models"
)

// defaultExecTimeout bounds a single code or shell execution.
const defaultExecTimeout = 2 * time.Minute

// RunPython executes a Python snippet and captures its output.
type RunPython struct {
	// WorkDir is the working directory for executions. Empty means inherit.
	WorkDir string
}

// Schema implements Tool.
func (t *RunPython) Schema() Schema {
	return Schema{
		Name:        "run_python",
		Description: "Execute a Python code snippet and return its stdout and stderr.",
		Properties: map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python source code to execute",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Optional execution timeout in seconds",
			},
		},
		Required: []string{"code"},
	}
}

// Execute implements Tool.
func (t *RunPython) Execute(ctx context.Context, input map[string]any) (models.ToolResponse, error) {
	code := stringArg(input, "code")
	if code == "" {
		return models.ToolResponse{}, fmt.Errorf("code is required")
	}
	return runCommand(ctx, t.WorkDir, execTimeout(input), "python3", "-c", code)
}

// RunShell executes a shell command and captures its output.
type RunShell struct {
	WorkDir string
}

// Schema implements Tool.
func (t *RunShell) Schema() Schema {
	return Schema{
		Name:        "run_shell",
		Description: "Execute a shell command and return its stdout and stderr.",
		Properties: map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Optional execution timeout in seconds",
			},
		},
		Required: []string{"command"},
	}
}

// Execute implements Tool.
func (t *RunShell) Execute(ctx context.Context, input map[string]any) (models.ToolResponse, error) {
	command := stringArg(input, "command")
	if command == "" {
		return models.ToolResponse{}, fmt.Errorf("command is required")
	}
	return runCommand(ctx, t.WorkDir, execTimeout(input), "sh", "-c", command)
}

func execTimeout(input map[string]any) time.Duration {
	if secs := intArg(input, "timeout_seconds", 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultExecTimeout
}

func runCommand(ctx context.Context, workDir string, timeout time.Duration, name string, args ...string) (models.ToolResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var out strings.Builder
	if stdout.Len() > 0 {
		out.WriteString(stdout.String())
	}
	if stderr.Len() > 0 {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString("stderr:\n")
		out.WriteString(stderr.String())
	}

	if cctx.Err() == context.DeadlineExceeded {
		return models.ToolResponse{}, fmt.Errorf("execution timed out after %s", timeout)
	}
	if err != nil {
		return models.ToolResponse{
			Content:  []models.ContentBlock{models.TextBlock(fmt.Sprintf("%s\nexit error: %v", out.String(), err))},
			Metadata: map[string]string{"status": "failed"},
		}, nil
	}
	if out.Len() == 0 {
		out.WriteString("(no output)")
	}
	return textResponse(out.String()), nil
}
