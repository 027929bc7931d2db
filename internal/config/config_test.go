package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `anthropic:
  api_key: test-key
  model: claude-3-5-haiku-20241022
  max_tokens: 2048
worker:
  max_iterations: 4
memory:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTokens != 2048 {
		t.Errorf("max tokens = %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.Worker.MaxIterations != 4 {
		t.Errorf("worker max iterations = %d", cfg.Worker.MaxIterations)
	}
	if cfg.Memory.Enabled {
		t.Error("memory should be disabled")
	}
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: k\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Worker.MaxIterations != 10 {
		t.Errorf("default worker max iterations = %d, want 10", cfg.Worker.MaxIterations)
	}
	if !cfg.Memory.Enabled {
		t.Error("memory should default to enabled")
	}
	if cfg.Anthropic.Model == "" {
		t.Error("model default missing")
	}
}

func TestLoadExpandsEnvInAPIKey(t *testing.T) {
	t.Setenv("ARI_TEST_SECRET", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: ${ARI_TEST_SECRET}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-from-env" {
		t.Errorf("api key = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	if err := WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate() error = %v", err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if cfg.Worker.MaxIterations != 10 {
		t.Errorf("template worker max iterations = %d", cfg.Worker.MaxIterations)
	}

	if err := WriteTemplate(path); err == nil {
		t.Error("WriteTemplate() overwrote an existing file")
	}
}

func TestWatchRequiresConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := Watch(func(*Config) {}); err == nil {
		t.Fatal("Watch() accepted a missing config file")
	}
}

func TestWatchDeliversReloadedConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := UserConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	write := func(maxIterations int) {
		content := fmt.Sprintf("worker:\n  max_iterations: %d\n", maxIterations)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	write(4)

	reloaded := make(chan *Config, 4)
	if err := Watch(func(cfg *Config) { reloaded <- cfg }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	write(7)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Worker.MaxIterations == 7 {
				return
			}
		case <-deadline:
			t.Fatal("edited config was not reloaded")
		}
	}
}
