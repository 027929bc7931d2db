package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arihq/ari/pkg/models"
)

// ReadTextFile reads a text file, optionally by line range.
type ReadTextFile struct{}

// Schema implements Tool.
func (t *ReadTextFile) Schema() Schema {
	return Schema{
		Name:        "read_text_file",
		Description: "Read a text file. Returns the content with 1-based line numbers.",
		Properties: map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read",
			},
			"start_line": map[string]any{
				"type":        "integer",
				"description": "First line to read (1-based, optional)",
			},
			"end_line": map[string]any{
				"type":        "integer",
				"description": "Last line to read (inclusive, optional)",
			},
		},
		Required: []string{"file_path"},
	}
}

// Execute implements Tool.
func (t *ReadTextFile) Execute(_ context.Context, input map[string]any) (models.ToolResponse, error) {
	path := stringArg(input, "file_path")
	if path == "" {
		return models.ToolResponse{}, fmt.Errorf("file_path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return models.ToolResponse{}, fmt.Errorf("read file: %w", err)
	}

	lines := strings.Split(string(content), "\n")
	start := intArg(input, "start_line", 1)
	end := intArg(input, "end_line", len(lines))
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return models.ToolResponse{}, fmt.Errorf("start_line %d is past end_line %d", start, end)
	}

	var out strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&out, "%6d\t%s\n", i, lines[i-1])
	}
	return textResponse(out.String()), nil
}

// WriteTextFile writes (or overwrites) a text file.
type WriteTextFile struct{}

// Schema implements Tool.
func (t *WriteTextFile) Schema() Schema {
	return Schema{
		Name:        "write_text_file",
		Description: "Write content to a text file, creating parent directories as needed.",
		Properties: map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write",
			},
		},
		Required: []string{"file_path", "content"},
	}
}

// Execute implements Tool.
func (t *WriteTextFile) Execute(_ context.Context, input map[string]any) (models.ToolResponse, error) {
	path := stringArg(input, "file_path")
	if path == "" {
		return models.ToolResponse{}, fmt.Errorf("file_path is required")
	}
	content := stringArg(input, "content")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.ToolResponse{}, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return models.ToolResponse{}, fmt.Errorf("write file: %w", err)
	}
	return textResponse(fmt.Sprintf("wrote %d bytes to %s", len(content), path)), nil
}

// InsertTextFile inserts content at a line position in an existing file.
// Line numbers follow the convention of the editing tools the workers are
// prompted with: 0 or "start" prepends, -1 or "end" appends.
type InsertTextFile struct{}

// Schema implements Tool.
func (t *InsertTextFile) Schema() Schema {
	return Schema{
		Name:        "insert_text_file",
		Description: "Insert content at a given line in a text file. Use 0 for the start and -1 for the end.",
		Properties: map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to modify",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to insert",
			},
			"line_number": map[string]any{
				"type":        "integer",
				"description": "1-based insertion line; 0 inserts at the start, -1 appends",
			},
		},
		Required: []string{"file_path", "content", "line_number"},
	}
}

// Execute implements Tool.
func (t *InsertTextFile) Execute(_ context.Context, input map[string]any) (models.ToolResponse, error) {
	path := stringArg(input, "file_path")
	if path == "" {
		return models.ToolResponse{}, fmt.Errorf("file_path is required")
	}
	content := stringArg(input, "content")
	line := intArg(input, "line_number", -1)

	existing, err := os.ReadFile(path)
	if err != nil {
		return models.ToolResponse{}, fmt.Errorf("read file: %w", err)
	}
	lines := strings.Split(string(existing), "\n")

	var at int
	switch {
	case line < 0 || line > len(lines):
		at = len(lines)
	case line == 0:
		at = 0
	default:
		at = line - 1
	}

	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:at]...)
	updated = append(updated, content)
	updated = append(updated, lines[at:]...)

	if err := os.WriteFile(path, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return models.ToolResponse{}, fmt.Errorf("write file: %w", err)
	}
	return textResponse(fmt.Sprintf("inserted %d bytes into %s at line %d", len(content), path, line)), nil
}
