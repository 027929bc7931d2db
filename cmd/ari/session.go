package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/arihq/ari/internal/agent"
	"github.com/arihq/ari/internal/config"
	"github.com/arihq/ari/internal/memory"
	"github.com/arihq/ari/internal/orchestrator"
	"github.com/arihq/ari/internal/registry"
	"github.com/arihq/ari/pkg/models"
)

// session bundles the wiring shared by the interactive and one-shot modes:
// the model client, agent registry, orchestrator, debug logger and optional
// history store.
type session struct {
	cfg    *config.Config
	client *agent.AnthropicClient
	reg    *registry.Registry
	orc    *orchestrator.Orchestrator
	logger *orchestrator.DebugLogger
	store  *memory.Store

	mu    sync.Mutex
	runID string
}

func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := orchestrator.NewDebugLogger(cfg.Debug.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	client, err := agent.NewAnthropicClient(agent.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}

	reg := registry.New()
	orc := orchestrator.New(orchestrator.Config{
		Model:               client,
		Registrar:           reg,
		Logger:              logger,
		WorkDir:             cfg.Worker.WorkDir,
		WorkerMaxIterations: cfg.Worker.MaxIterations,
		MaxTokens:           cfg.Anthropic.MaxTokens,
	})

	s := &session{
		cfg:    cfg,
		client: client,
		reg:    reg,
		orc:    orc,
		logger: logger,
	}

	if cfg.Memory.Enabled {
		path := cfg.Memory.Path
		if path == "" {
			path = memory.DefaultPath()
		}
		store, err := memory.Open(path)
		if err != nil {
			// History is best-effort. A broken store should not stop a run.
			logger.Log("history store unavailable: %v", err)
		} else {
			s.store = store
			reg.AttachSink(s.recordFinal)
		}
	}

	return s, nil
}

// applyConfig folds a freshly loaded configuration into the running session.
// Model credentials and the history store keep their startup values; worker
// settings take effect on the next request.
func (s *session) applyConfig(cfg *config.Config) {
	s.orc.Reconfigure(cfg.Worker.WorkDir, cfg.Worker.MaxIterations, cfg.Anthropic.MaxTokens)
	s.logger.Log("configuration reloaded")
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
	s.logger.Close()
}

// handle runs one user request through the orchestrator, recording the run in
// the history store when one is open.
func (s *session) handle(ctx context.Context, input string) error {
	if s.store != nil {
		if runID, err := s.store.BeginRun(input); err == nil {
			s.setRunID(runID)
			s.store.AppendMessage(runID, models.NewUserMessage("user", input))
		}
	}

	_, err := s.orc.HandleMessage(ctx, input)

	if runID := s.setRunID(""); runID != "" {
		status := "done"
		if err != nil {
			status = "error"
		}
		s.store.FinishRun(runID, status)
	}
	return err
}

// recordFinal is a registry sink persisting every agent's final message under
// the active run.
func (s *session) recordFinal(ev models.StreamEvent) {
	if !ev.Final {
		return
	}
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	if runID == "" {
		return
	}
	if err := s.store.AppendMessage(runID, ev.Message); err != nil {
		s.logger.Log("record message: %v", err)
	}
}

// setRunID swaps the active run id and returns the previous one.
func (s *session) setRunID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.runID
	s.runID = id
	return prev
}
