package provider

import (
	"fmt"
	"os"
	"time"
)

// Config holds configuration for creating an engine client.
// Common fields apply to all engines; use Options for engine-specific settings.
type Config struct {
	// Provider is the backend ID. Required.
	Provider string `json:"provider" yaml:"provider" toml:"provider"`

	// Model is the model to use (engine-specific name).
	Model string `json:"model" yaml:"model" toml:"model"`

	// SystemPrompt is prepended to every request's prompt.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`

	// Timeout bounds a single run. 0 uses the engine default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// WorkDir is the working directory of the agent.
	WorkDir string `json:"work_dir" yaml:"work_dir" toml:"work_dir"`

	// AllowedTools limits which tools the agent can use.
	AllowedTools []string `json:"allowed_tools" yaml:"allowed_tools" toml:"allowed_tools"`

	// DisallowedTools explicitly blocks tools.
	DisallowedTools []string `json:"disallowed_tools" yaml:"disallowed_tools" toml:"disallowed_tools"`

	// Env provides additional environment variables for the CLI process.
	Env map[string]string `json:"env" yaml:"env" toml:"env"`

	// Options holds engine-specific configuration.
	//
	// droid:
	//   - "cmd": string (binary path)
	//   - "agent_name": string
	//   - "reasoning_effort": string
	//   - "auto": string (autonomy level)
	//   - "lsp_framing": bool
	//   - "fallback_to_text": bool
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// DefaultConfig returns a Config with sensible defaults.
// Provider must still be set before use.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Minute,
	}
}

// LoadFromEnv populates config fields from environment variables.
// Variables use the ACPKIT_ prefix and take precedence over existing values.
//
// Supported variables:
//   - ACPKIT_PROVIDER
//   - ACPKIT_MODEL
//   - ACPKIT_SYSTEM_PROMPT
//   - ACPKIT_TIMEOUT (e.g., "5m")
//   - ACPKIT_WORK_DIR
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("ACPKIT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("ACPKIT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("ACPKIT_SYSTEM_PROMPT"); v != "" {
		c.SystemPrompt = v
	}
	if v := os.Getenv("ACPKIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("ACPKIT_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	return nil
}

// WithProvider returns a copy of the config with the specified provider.
func (c Config) WithProvider(provider string) Config {
	c.Provider = provider
	return c
}

// WithModel returns a copy of the config with the specified model.
func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}

// WithWorkDir returns a copy of the config with the specified working directory.
func (c Config) WithWorkDir(dir string) Config {
	c.WorkDir = dir
	return c
}

// WithOption returns a copy of the config with the specified option set.
func (c Config) WithOption(key string, value any) Config {
	opts := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		opts[k] = v
	}
	opts[key] = value
	c.Options = opts
	return c
}
