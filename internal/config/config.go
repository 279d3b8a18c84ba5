// Package config loads Foundry's configuration from an optional YAML file
// with environment overrides. The zero value is fully usable.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file or a field is absent.
const (
	DefaultModel         = "gpt-4o"
	DefaultMaxConcurrent = 5
	DefaultToolTimeout   = 60 * time.Second
)

// Config is the top-level configuration.
type Config struct {
	// Model is the default LLM model identifier.
	Model string `yaml:"model"`

	// Workspace is the root directory tools operate in. Empty means cwd.
	Workspace string `yaml:"workspace"`

	// MaxConcurrentAgents caps the agent scheduler.
	MaxConcurrentAgents int `yaml:"max_concurrent_agents"`

	// ToolTimeoutSeconds is the per-call tool deadline.
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the stock configuration.
func Default() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Model:               DefaultModel,
		Workspace:           cwd,
		MaxConcurrentAgents: DefaultMaxConcurrent,
		ToolTimeoutSeconds:  int(DefaultToolTimeout.Seconds()),
		Log:                 LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path when it exists and applies environment overrides. A
// missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if model := os.Getenv("FOUNDRY_MODEL"); model != "" {
		cfg.Model = model
	}
	if ws := os.Getenv("FOUNDRY_WORKSPACE"); ws != "" {
		cfg.Workspace = ws
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Workspace == "" {
		c.Workspace, _ = os.Getwd()
	}
	if c.MaxConcurrentAgents <= 0 {
		c.MaxConcurrentAgents = DefaultMaxConcurrent
	}
	if c.ToolTimeoutSeconds <= 0 {
		c.ToolTimeoutSeconds = int(DefaultToolTimeout.Seconds())
	}
}

// ToolTimeout returns the tool deadline as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}
