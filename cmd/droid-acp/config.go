package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/acpkit/droid"
)

var configWatch bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective droid settings",
	Long: `Config prints the settings after loading --config and the environment.
With --watch it keeps running and prints them again whenever the file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !configWatch {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		}
		if configPath == "" {
			return errors.New("--watch requires --config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := newLogger()
		return droid.WatchConfig(ctx, configPath, func(cfg droid.Config, err error) {
			if err != nil {
				logger.Warn("reload failed", slog.Any("error", err))
				return
			}
			cfg.LoadFromEnv()
			if err := printJSON(cfg); err != nil {
				logger.Warn("print config", slog.Any("error", err))
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVarP(&configWatch, "watch", "w", false, "Reprint when the config file changes")
}
