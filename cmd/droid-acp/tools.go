package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/droid"
)

var argsCmd = &cobra.Command{
	Use:   "args",
	Short: "Print the droid command line for the current config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, strings.Join(append([]string{cfg.Command}, cfg.BuildArgs()...), " "))
		return nil
	},
}

var payloadResume string

var payloadCmd = &cobra.Command{
	Use:   "payload <prompt>",
	Short: "Print the stdin payload droid would receive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := droid.StdinPayload(cfg, args[0], parseResume(payloadResume))
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	},
}

var resumeTokenCmd = &cobra.Command{
	Use:   "resume-token",
	Short: "Find a droid resume hint in text read from stdin",
	Long: `Resume-token scans stdin for a line like "droid resume <token>" and prints
the token. It exits 1 when none is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		tok, ok := droid.NewResumeExtractor(droid.Engine, cfg.Command).Extract(string(text))
		if !ok {
			return fmt.Errorf("no resume token found")
		}
		fmt.Fprintln(stdout, tok.Value)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the droid settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := droid.ConfigSchemaJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the installed droid CLI version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := acpcontract.DetectCLIVersion(cmd.Context(), cfg.Command)
		if err != nil {
			return err
		}
		v.WarnIfUntested()
		fmt.Fprintf(stdout, "droid %s (tested with %s)\n", v, acpcontract.TestedCLIVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(argsCmd, payloadCmd, resumeTokenCmd, schemaCmd, versionCmd)
	payloadCmd.Flags().StringVar(&payloadResume, "resume", "", "Session id to continue")
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
