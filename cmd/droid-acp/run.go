package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/droid"
	"github.com/randalmurphal/acpkit/provider"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run droid and print its events",
	Long: `Run starts droid with the prompt (or stdin when no prompt is given) and
prints each event as a JSON line. The exit status is 1 when the run fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		prompt, err := promptFrom(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := newLogger()
		acpcontract.CheckVersion(ctx, cfg.Command)

		runner, err := droid.NewRunner(cfg, droid.WithLogger(logger))
		if err != nil {
			return err
		}
		events, err := runner.Run(ctx, prompt, parseResume(resumeFlag))
		if err != nil {
			return err
		}

		var final provider.CompletedEvent
		for ev := range events {
			if err := writeEvent(ev); err != nil {
				return err
			}
			if c, ok := ev.(provider.CompletedEvent); ok {
				final = c
			}
		}
		if !final.OK {
			return fmt.Errorf("%w: %s", provider.ErrRunFailed, final.ErrorText())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&resumeFlag, "resume", "", "Session id to continue")
}

func promptFrom(r io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}
