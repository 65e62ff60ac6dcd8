// Command droid-acp runs the droid CLI in ACP mode and translates its stream
// into normalized lifecycle events, one JSON object per line.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/acpkit/droid"
	"github.com/randalmurphal/acpkit/provider"
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

var (
	configPath string
	verbose    bool
	resumeFlag string
)

var rootCmd = &cobra.Command{
	Use:   "droid-acp",
	Short: "Translate droid ACP streams into lifecycle events",
	Long: `droid-acp drives "droid exec --output-format acp" and reports each run as
started, action and completed events. The stream translator can also be used
on its own over captured output.

Settings come from --config (TOML, YAML or JSON) and DROID_* environment
variables, which take precedence.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.toml, .yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config if set, then applies the environment.
func loadConfig() (droid.Config, error) {
	cfg := droid.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = droid.LoadConfigFile(configPath)
		if err != nil {
			return droid.Config{}, err
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return droid.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger creates a structured logger on stderr with the configured verbosity.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseResume turns a --resume value into a token.
func parseResume(value string) *provider.ResumeToken {
	return provider.NewResumeToken(droid.Engine, value)
}

// writeEvent prints ev as one JSON line.
func writeEvent(ev provider.Event) error {
	data, err := provider.MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data = append(data, '\n')
	_, err = stdout.Write(data)
	return err
}
