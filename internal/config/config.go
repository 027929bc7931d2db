// Package config handles configuration loading and management for Ari.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Ari.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// AnthropicConfig holds model provider settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
	MaxTokens     int    `mapstructure:"max_tokens"`
}

// WorkerConfig holds worker agent settings.
type WorkerConfig struct {
	// MaxIterations caps each worker's think/act loop.
	MaxIterations int `mapstructure:"max_iterations"`
	// WorkDir is where worker code and shell tools execute. Empty means the
	// current directory.
	WorkDir string `mapstructure:"work_dir"`
}

// MemoryConfig holds conversation history settings.
type MemoryConfig struct {
	// Enabled toggles the history store.
	Enabled bool `mapstructure:"enabled"`
	// Path is the history database location. Empty means the default XDG
	// data path.
	Path string `mapstructure:"path"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	// LogPath is the debug log file. Empty disables debug logging.
	LogPath string `mapstructure:"log_path"`
}

// Load loads configuration with this precedence, highest first:
// environment variables (ARI_*, ANTHROPIC_API_KEY), project config
// (.ari.yaml in the current directory or a parent), user config
// (~/.config/ari/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		pv := viper.New()
		pv.SetConfigFile(projectConfig)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ARI")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "ARI_API_KEY")
	v.BindEnv("anthropic.model", "ARI_MODEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Watch reloads the user config file on change and invokes onChange with the
// fresh configuration. Unparsable edits are ignored until fixed.
func Watch(onChange func(*Config)) error {
	path := UserConfigPath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not found: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if cfg, err := Load(); err == nil {
					onChange(cfg)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
		},
		Worker: WorkerConfig{
			MaxIterations: 10,
		},
		Memory: MemoryConfig{
			Enabled: true,
		},
	}
}

// WriteTemplate writes a commented default config file to path, refusing to
// overwrite an existing one.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	template := map[string]any{
		"anthropic": map[string]any{
			"api_key":         "${ANTHROPIC_API_KEY}",
			"model":           "claude-sonnet-4-20250514",
			"use_aws_bedrock": false,
			"aws_region":      "",
			"aws_profile":     "",
			"max_tokens":      8192,
		},
		"worker": map[string]any{
			"max_iterations": 10,
			"work_dir":       "",
		},
		"memory": map[string]any{
			"enabled": true,
			"path":    "",
		},
		"debug": map[string]any{
			"log_path": "",
		},
	}

	out, err := yaml.Marshal(template)
	if err != nil {
		return fmt.Errorf("marshal config template: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	return nil
}

// UserConfigPath returns the path to the user config file.
func UserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")
	v.SetDefault("anthropic.max_tokens", 8192)

	v.SetDefault("worker.max_iterations", 10)
	v.SetDefault("worker.work_dir", "")

	v.SetDefault("memory.enabled", true)
	v.SetDefault("memory.path", "")

	v.SetDefault("debug.log_path", "")
}

// userConfigDir returns the XDG config directory for Ari.
func userConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ari")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ari")
	}
	return filepath.Join(home, ".config", "ari")
}

// findProjectConfig searches for .ari.yaml in the current directory and its
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".ari.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
