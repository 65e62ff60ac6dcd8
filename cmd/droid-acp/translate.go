package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/acpkit/droid"
	"github.com/randalmurphal/acpkit/provider"
)

var (
	translateFraming string
	translatePrior   string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a captured droid stream from stdin",
	Long: `Translate reads droid ACP output from stdin and prints the resulting events
as JSON lines. Invalid input lines are logged to stderr.

Framing defaults to the lsp_framing setting; --framing overrides it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mode := cfg.FrameMode()
		switch translateFraming {
		case "":
		case "header":
			mode = droid.FrameModeHeader
		case "line":
			mode = droid.FrameModeLine
		default:
			return errors.New(`--framing must be "header" or "line"`)
		}
		return translateStream(cmd.InOrStdin(), mode, parseResume(translatePrior), newLogger())
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVar(&translateFraming, "framing", "", `Frame mode: "header" or "line"`)
	translateCmd.Flags().StringVar(&translatePrior, "resume", "", "Resume token the run was started with")
}

func translateStream(r io.Reader, mode droid.FrameMode, prior *provider.ResumeToken, logger *slog.Logger) error {
	frames := droid.NewFrameReader(r, mode, droid.WithFrameLogger(logger))
	translator := droid.NewTranslator()
	state := droid.NewStreamState()

	for {
		frame, err := frames.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		res := droid.Decode(frame)
		if res.Invalid != nil {
			logger.Warn("invalid input", slog.String("line", res.Invalid.Line))
			continue
		}
		if res.Value == nil {
			continue
		}

		var events []provider.Event
		state, events = translator.TranslateValue(state, res.Value, prior)
		for _, ev := range events {
			if err := writeEvent(ev); err != nil {
				return err
			}
		}
	}
}
