package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kaptinlin/jsonrepair"

	"github.com/arihq/ari/pkg/models"
)

// defaultMaxTokens bounds a single model turn when the request doesn't say.
const defaultMaxTokens = 8192

// ClientConfig contains configuration for creating an AnthropicClient.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// AnthropicClient is the ModelClient backed by the Anthropic API, with token
// tracking shared across all agents of a session.
type AnthropicClient struct {
	inner   anthropic.Client
	model   anthropic.Model
	tracker *TokenTracker
}

// NewAnthropicClient creates a new Anthropic-backed model client.
func NewAnthropicClient(cfg ClientConfig) (*AnthropicClient, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	return &AnthropicClient{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		tracker: NewTokenTracker(),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *AnthropicClient) Tracker() *TokenTracker {
	return c.tracker
}

// Stream implements ModelClient.
func (c *AnthropicClient) Stream(ctx context.Context, req ModelRequest) (ModelStream, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages:  encodeMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, schema := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        schema.Name,
				Description: anthropic.String(schema.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		})
	}

	raw := c.inner.Messages.NewStreaming(ctx, params)
	s := &anthropicStream{snapshots: make(chan []models.ContentBlock, 16)}
	go s.consume(ctx, raw, c.tracker)
	return s, nil
}

// encodeMessages converts conversation history to SDK message params.
// System-role entries are folded into user messages so that injected notices
// survive providers that only accept user and assistant roles mid-thread.
func encodeMessages(history []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range msg.Content {
			switch b.Type {
			case models.BlockText:
				if b.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				}
			case models.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, b.Input, b.Name))
			case models.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			}
			// Thinking blocks are not replayed.
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

// anthropicStream adapts the SDK event stream to cumulative content
// snapshots. One goroutine owns the working block state; consumers only see
// copied snapshots.
type anthropicStream struct {
	snapshots chan []models.ContentBlock

	mu  sync.Mutex
	err error
}

// Snapshots implements ModelStream.
func (s *anthropicStream) Snapshots() <-chan []models.ContentBlock {
	return s.snapshots
}

// Err implements ModelStream.
func (s *anthropicStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *anthropicStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// workingBlock is the mutable accumulation state for one content block index.
type workingBlock struct {
	block       models.ContentBlock
	partialJSON string
}

func (s *anthropicStream) consume(ctx context.Context, raw *ssestream.Stream[anthropic.MessageStreamEventUnion], tracker *TokenTracker) {
	defer close(s.snapshots)
	defer raw.Close()

	var (
		blocks    []*workingBlock
		inputToks int64
	)

	emit := func() bool {
		snapshot := make([]models.ContentBlock, 0, len(blocks))
		for _, wb := range blocks {
			b := wb.block
			if b.Input != nil {
				input := make(map[string]any, len(b.Input))
				for k, v := range b.Input {
					input[k] = v
				}
				b.Input = input
			}
			snapshot = append(snapshot, b)
		}
		select {
		case s.snapshots <- snapshot:
			return true
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return false
		}
	}

	for raw.Next() {
		switch ev := raw.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			inputToks = ev.Message.Usage.InputTokens

		case anthropic.ContentBlockStartEvent:
			wb := &workingBlock{}
			switch start := ev.ContentBlock.AsAny().(type) {
			case anthropic.TextBlock:
				wb.block = models.TextBlock(start.Text)
			case anthropic.ThinkingBlock:
				wb.block = models.ThinkingBlock(start.Thinking)
			case anthropic.ToolUseBlock:
				wb.block = models.ContentBlock{
					Type:  models.BlockToolUse,
					ID:    start.ID,
					Name:  start.Name,
					Input: map[string]any{},
				}
			default:
				wb.block = models.TextBlock("")
			}
			blocks = append(blocks, wb)
			if !emit() {
				return
			}

		case anthropic.ContentBlockDeltaEvent:
			idx := int(ev.Index)
			if idx < 0 || idx >= len(blocks) {
				continue
			}
			wb := blocks[idx]
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				wb.block.Text += delta.Text
			case anthropic.ThinkingDelta:
				wb.block.Text += delta.Thinking
			case anthropic.InputJSONDelta:
				wb.partialJSON += delta.PartialJSON
				if input, ok := parsePartialJSON(wb.partialJSON); ok {
					wb.block.Input = input
				}
			default:
				continue
			}
			if !emit() {
				return
			}

		case anthropic.ContentBlockStopEvent:
			idx := int(ev.Index)
			if idx < 0 || idx >= len(blocks) {
				continue
			}
			wb := blocks[idx]
			if wb.block.Type == models.BlockToolUse && wb.partialJSON != "" {
				if input, ok := parsePartialJSON(wb.partialJSON); ok {
					wb.block.Input = input
				}
				if !emit() {
					return
				}
			}

		case anthropic.MessageDeltaEvent:
			tracker.Add(inputToks, ev.Usage.OutputTokens)
			inputToks = 0
		}
	}

	if err := raw.Err(); err != nil {
		s.setErr(err)
	} else if err := ctx.Err(); err != nil {
		s.setErr(err)
	}
}

// parsePartialJSON decodes a possibly incomplete JSON object. Well-formed
// input parses directly; truncated streaming fragments go through repair.
func parsePartialJSON(raw string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, true
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, false
	}
	return out, true
}
