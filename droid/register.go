package droid

import (
	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/provider"
)

func init() {
	provider.Register(provider.Backend{
		ID:             Engine,
		CLICommand:     acpcontract.DefaultCommand,
		InstallCommand: acpcontract.InstallCommand,
		Build:          newFromProviderConfig,
	})
}

// newFromProviderConfig creates a Client from a provider.Config.
// Engine settings come from cfg.Options with the same keys and type rules as
// a config file; the common fields override them.
func newFromProviderConfig(cfg provider.Config) (provider.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := cfg.Options
	if options == nil {
		options = map[string]any{}
	}
	dcfg, err := ConfigFromMap(options)
	if err != nil {
		return nil, err
	}

	if cfg.Model != "" {
		dcfg.Model = cfg.Model
	}
	if cfg.WorkDir != "" {
		dcfg.Cwd = cfg.WorkDir
	}
	if cfg.Timeout > 0 {
		dcfg.Timeout = cfg.Timeout
	}
	if len(cfg.AllowedTools) > 0 {
		dcfg.EnabledTools = compactToolList(cfg.AllowedTools)
	}
	if len(cfg.DisallowedTools) > 0 {
		dcfg.DisabledTools = compactToolList(cfg.DisallowedTools)
	}

	var opts []RunnerOption
	if len(cfg.Env) > 0 {
		opts = append(opts, WithEnv(cfg.Env))
	}
	if cfg.WorkDir != "" {
		opts = append(opts, WithWorkdir(cfg.WorkDir))
	}
	client, err := NewClient(dcfg, opts...)
	if err != nil {
		return nil, err
	}
	client.systemPrompt = cfg.SystemPrompt
	return client, nil
}
