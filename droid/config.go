package droid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/provider"
)

// PipesErrorMessage is reported when the subprocess pipes cannot be opened.
const PipesErrorMessage = "droid failed to open subprocess pipes"

// Config holds the droid engine settings.
// Zero values use defaults where noted; DefaultConfig sets the boolean
// defaults that are true.
type Config struct {
	// Command is the droid executable. Default: "droid" (found via PATH).
	Command string `json:"cmd" yaml:"cmd" toml:"cmd" jsonschema:"default=droid"`

	// AgentName is sent as agent_name in the run request. Default: "droid".
	AgentName string `json:"agent_name" yaml:"agent_name" toml:"agent_name" jsonschema:"default=droid"`

	// Model is passed as --model.
	Model string `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`

	// ReasoningEffort is passed as --reasoning-effort.
	ReasoningEffort string `json:"reasoning_effort,omitempty" yaml:"reasoning_effort,omitempty" toml:"reasoning_effort,omitempty"`

	// Auto is the autonomy level passed as --auto.
	// Options: "low", "medium", "high"
	Auto string `json:"auto,omitempty" yaml:"auto,omitempty" toml:"auto,omitempty" jsonschema:"enum=low,enum=medium,enum=high"`

	// EnabledTools is passed comma-joined as --enabled-tools.
	EnabledTools ToolList `json:"enabled_tools,omitempty" yaml:"enabled_tools,omitempty" toml:"enabled_tools,omitempty"`

	// DisabledTools is passed comma-joined as --disabled-tools.
	DisabledTools ToolList `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty" toml:"disabled_tools,omitempty"`

	// Cwd is passed as --cwd.
	Cwd string `json:"cwd,omitempty" yaml:"cwd,omitempty" toml:"cwd,omitempty"`

	// LSPFraming selects Content-Length framing for stdin and stdout.
	// Default: true.
	LSPFraming bool `json:"lsp_framing" yaml:"lsp_framing" toml:"lsp_framing" jsonschema:"default=true"`

	// FallbackToText scans unparsable output and stderr for a resume hint
	// when the stream never reported a session id. Default: true.
	FallbackToText bool `json:"fallback_to_text" yaml:"fallback_to_text" toml:"fallback_to_text" jsonschema:"default=true"`

	// Timeout bounds one run. 0 means no limit beyond the caller's context.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty" jsonschema:"type=string"`
}

// ToolList is a normalized list of tool names. In configuration it may be a
// list of strings or a single string separated by commas or whitespace.
type ToolList []string

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	return Config{
		Command:        acpcontract.DefaultCommand,
		AgentName:      acpcontract.DefaultAgentName,
		LSPFraming:     true,
		FallbackToText: true,
	}
}

// LoadFromEnv populates config fields from environment variables.
// Variables use the DROID_ prefix and take precedence over existing values.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DROID_CMD"); v != "" {
		c.Command = v
	}
	if v := os.Getenv("DROID_AGENT_NAME"); v != "" {
		c.AgentName = v
	}
	if v := os.Getenv("DROID_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("DROID_REASONING_EFFORT"); v != "" {
		c.ReasoningEffort = v
	}
	if v := os.Getenv("DROID_AUTO"); v != "" {
		c.Auto = v
	}
	if v := os.Getenv("DROID_ENABLED_TOOLS"); v != "" {
		c.EnabledTools = SplitToolList(v)
	}
	if v := os.Getenv("DROID_DISABLED_TOOLS"); v != "" {
		c.DisabledTools = SplitToolList(v)
	}
	if v := os.Getenv("DROID_CWD"); v != "" {
		c.Cwd = v
	}
	if v := os.Getenv("DROID_LSP_FRAMING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LSPFraming = b
		}
	}
	if v := os.Getenv("DROID_FALLBACK_TO_TEXT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.FallbackToText = b
		}
	}
	if v := os.Getenv("DROID_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
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
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.Auto != "" {
		switch strings.ToLower(c.Auto) {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("invalid auto: %q (must be low, medium, or high)", c.Auto)
		}
	}
	for _, tool := range c.EnabledTools {
		if strings.TrimSpace(tool) == "" {
			return fmt.Errorf("enabled_tools contains an empty name")
		}
	}
	for _, tool := range c.DisabledTools {
		if strings.TrimSpace(tool) == "" {
			return fmt.Errorf("disabled_tools contains an empty name")
		}
	}
	return nil
}

// FrameMode returns the framing used for stdin and stdout.
func (c Config) FrameMode() FrameMode {
	return FrameModeFor(c.LSPFraming)
}

func (c Config) command() string {
	if c.Command == "" {
		return acpcontract.DefaultCommand
	}
	return c.Command
}

func (c Config) agentName() string {
	if c.AgentName == "" {
		return acpcontract.DefaultAgentName
	}
	return c.AgentName
}

// BuildArgs returns the droid arguments for one run.
func (c Config) BuildArgs() []string {
	args := []string{acpcontract.CommandExec, acpcontract.FlagOutputFormat, acpcontract.OutputFormatACP}
	if c.Model != "" {
		args = append(args, acpcontract.FlagModel, c.Model)
	}
	if c.ReasoningEffort != "" {
		args = append(args, acpcontract.FlagReasoningEffort, c.ReasoningEffort)
	}
	if c.Auto != "" {
		args = append(args, acpcontract.FlagAuto, c.Auto)
	}
	if len(c.EnabledTools) > 0 {
		args = append(args, acpcontract.FlagEnabledTools, strings.Join(c.EnabledTools, ","))
	}
	if len(c.DisabledTools) > 0 {
		args = append(args, acpcontract.FlagDisabledTools, strings.Join(c.DisabledTools, ","))
	}
	if c.Cwd != "" {
		args = append(args, acpcontract.FlagCwd, c.Cwd)
	}
	return args
}

// ConfigFromMap builds a Config from loosely-typed settings, as read from a
// config file table. Missing keys keep their defaults; unknown keys are
// ignored. A recognized key with the wrong type returns a
// *provider.ConfigError.
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()

	var err error
	str := func(key string, dst *string) {
		if err != nil {
			return
		}
		var v string
		var ok bool
		v, ok, err = getString(m, key)
		if ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if err != nil {
			return
		}
		var v, ok bool
		v, ok, err = getBool(m, key)
		if ok {
			*dst = v
		}
	}
	list := func(key string, dst *ToolList) {
		if err != nil {
			return
		}
		*dst, err = getToolList(m, key)
	}

	str("cmd", &cfg.Command)
	str("agent_name", &cfg.AgentName)
	str("model", &cfg.Model)
	str("reasoning_effort", &cfg.ReasoningEffort)
	str("auto", &cfg.Auto)
	list("enabled_tools", &cfg.EnabledTools)
	list("disabled_tools", &cfg.DisabledTools)
	str("cwd", &cfg.Cwd)
	boolean("lsp_framing", &cfg.LSPFraming)
	boolean("fallback_to_text", &cfg.FallbackToText)
	if err != nil {
		return Config{}, err
	}

	timeout, ok, err := getString(m, "timeout")
	if err != nil {
		return Config{}, err
	}
	if ok && timeout != "" {
		d, perr := time.ParseDuration(timeout)
		if perr != nil {
			return Config{}, &provider.ConfigError{Engine: Engine, Key: "timeout", Expected: "a duration"}
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func getString(m map[string]any, key string) (string, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &provider.ConfigError{Engine: Engine, Key: key, Expected: "a string"}
	}
	return s, true, nil
}

func getBool(m map[string]any, key string) (bool, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, &provider.ConfigError{Engine: Engine, Key: key, Expected: "a boolean"}
	}
	return b, true, nil
}

// getToolList returns nil when the key is missing or normalizes to no names.
func getToolList(m map[string]any, key string) (ToolList, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		return SplitToolList(val), nil
	case []string:
		return compactToolList(val), nil
	case []any:
		names := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &provider.ConfigError{Engine: Engine, Key: key, Expected: "a list of strings"}
			}
			names = append(names, s)
		}
		return compactToolList(names), nil
	}
	return nil, &provider.ConfigError{Engine: Engine, Key: key, Expected: "a list or string"}
}

// SplitToolList splits s on commas and whitespace. It returns nil if s holds
// no names.
func SplitToolList(s string) ToolList {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return compactToolList(fields)
}

func compactToolList(names []string) ToolList {
	var out ToolList
	for _, name := range names {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// LoadConfigFile reads settings from a .toml, .yaml, .yml or .json file.
// The settings may sit at the top level or under a "droid" table.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if table, ok := raw[Engine].(map[string]any); ok {
		raw = table
	}
	cfg, err := ConfigFromMap(raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
