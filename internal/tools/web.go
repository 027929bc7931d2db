package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/arihq/ari/pkg/models"
)

// maxFetchBytes caps how much of a fetched page is read.
const maxFetchBytes = 2 << 20

// WebFetch downloads a web page and extracts its readable text.
type WebFetch struct {
	// Client is the HTTP client to use. Nil means a default with a 30s timeout.
	Client *http.Client
}

// Schema implements Tool.
func (t *WebFetch) Schema() Schema {
	return Schema{
		Name:        "web_fetch",
		Description: "Fetch a web page and return its title and readable text content.",
		Properties: map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch",
			},
			"max_chars": map[string]any{
				"type":        "integer",
				"description": "Optional cap on returned text length",
			},
		},
		Required: []string{"url"},
	}
}

// Execute implements Tool.
func (t *WebFetch) Execute(ctx context.Context, input map[string]any) (models.ToolResponse, error) {
	url := stringArg(input, "url")
	if url == "" {
		return models.ToolResponse{}, fmt.Errorf("url is required")
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ToolResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ari/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return models.ToolResponse{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ToolResponse{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return models.ToolResponse{}, fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := normalizeWhitespace(doc.Find("body").Text())

	if max := intArg(input, "max_chars", 0); max > 0 {
		if runes := []rune(text); len(runes) > max {
			text = string(runes[:max]) + "\n... (truncated)"
		}
	}

	var out strings.Builder
	if title != "" {
		fmt.Fprintf(&out, "Title: %s\n\n", title)
	}
	out.WriteString(text)
	return textResponse(out.String()), nil
}

func normalizeWhitespace(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
