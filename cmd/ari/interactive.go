package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arihq/ari/internal/config"
	"github.com/arihq/ari/internal/registry"
	"github.com/arihq/ari/internal/tui"
)

// runInteractive drives the TUI: user prompts feed a session loop through a
// channel, and multiplexed agent events are pumped back into the program.
func runInteractive() error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	// Config edits apply to subsequent requests. Sessions without a config
	// file just keep their startup settings.
	if err := config.Watch(s.applyConfig); err != nil {
		s.logger.Log("config watch unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := registry.NewMultiplexer(s.reg)

	prompts := make(chan string, 1)
	app := tui.New(func(text string) {
		select {
		case prompts <- text:
		default:
		}
	})
	program := tea.NewProgram(app, tea.WithAltScreen())

	mux.Run(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case input := <-prompts:
				program.Send(tui.SessionDoneMsg{Err: s.handle(ctx, input)})
			}
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.reg.Registered():
				program.Send(tui.AgentJoinedMsg{Count: s.reg.Len()})
			}
		}
	}()

	go func() {
		for {
			ev, ok := mux.Next(context.Background())
			if !ok {
				program.Send(tui.StreamClosedMsg{})
				return
			}
			program.Send(tui.StreamEventMsg{Event: ev})
		}
	}()

	_, err = program.Run()
	cancel()
	<-mux.Done()
	return err
}
