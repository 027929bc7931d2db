package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arihq/ari/internal/registry"
	"github.com/arihq/ari/internal/stream"
	"github.com/arihq/ari/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run [request...]",
	Short: "Execute a single request and exit",
	Long: `Run sends one request through the orchestrator, streams every
agent's output to stdout as it arrives, and prints token usage when done.
Ctrl+C interrupts the run; in-flight output is still drained.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(strings.Join(args, " "))
	},
}

func runOnce(input string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mux := registry.NewMultiplexer(s.reg)
	mux.Run(ctx, func(ctx context.Context) error {
		return s.handle(ctx, input)
	})

	r := newRenderer(os.Stdout)
	for {
		ev, ok := mux.Next(context.Background())
		if !ok {
			break
		}
		r.observe(ev)
	}
	r.finish()

	in, out := s.client.Tracker().Total()
	color.New(color.Faint).Fprintf(os.Stderr, "\n%d input + %d output tokens over %d model calls\n",
		in, out, s.client.Tracker().Calls())

	if err := mux.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			color.New(color.FgYellow).Fprintln(os.Stderr, "interrupted")
			return nil
		}
		return err
	}
	return nil
}

// renderer prints multiplexed agent output incrementally, one color per
// content kind, with an agent label whenever the speaker changes.
type renderer struct {
	out       *os.File
	acc       *stream.Accumulator
	lastAgent string
	atLineEnd bool

	agent    *color.Color
	thinking *color.Color
	tool     *color.Color
	fail     *color.Color
}

func newRenderer(out *os.File) *renderer {
	return &renderer{
		out:       out,
		acc:       stream.NewAccumulator(),
		atLineEnd: true,

		agent:    color.New(color.FgCyan, color.Bold),
		thinking: color.New(color.Faint, color.Italic),
		tool:     color.New(color.FgGreen),
		fail:     color.New(color.FgRed),
	}
}

func (r *renderer) observe(ev models.StreamEvent) {
	for _, inc := range r.acc.Observe(ev.Message) {
		if inc.Agent != r.lastAgent {
			r.breakLine()
			r.agent.Fprintf(r.out, "%s:\n", inc.Agent)
			r.lastAgent = inc.Agent
		}

		switch inc.Kind {
		case models.BlockThinking:
			r.print(r.thinking, inc.Text)
		case models.BlockToolUse:
			if inc.FirstForTool {
				r.breakLine()
				r.tool.Fprintf(r.out, "⚙ %s ", inc.ToolName)
				r.atLineEnd = false
			}
			r.print(r.tool, inc.Text)
		case models.BlockToolResult:
			r.breakLine()
			if inc.IsError {
				r.fail.Fprintf(r.out, "✗ %s\n", inc.Text)
			} else {
				r.tool.Fprintf(r.out, "→ %s\n", inc.Text)
			}
		default:
			r.print(nil, inc.Text)
		}
	}
}

func (r *renderer) print(c *color.Color, text string) {
	if text == "" {
		return
	}
	if c == nil {
		fmt.Fprint(r.out, text)
	} else {
		c.Fprint(r.out, text)
	}
	r.atLineEnd = strings.HasSuffix(text, "\n")
}

func (r *renderer) breakLine() {
	if !r.atLineEnd {
		fmt.Fprintln(r.out)
		r.atLineEnd = true
	}
}

func (r *renderer) finish() {
	r.breakLine()
}
