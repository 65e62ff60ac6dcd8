package acpcontract

// droid CLI commands and flags used by this library.
const (
	DefaultCommand   = "droid"
	DefaultAgentName = "droid"

	CommandExec   = "exec"
	CommandResume = "resume"

	FlagOutputFormat    = "--output-format"
	FlagModel           = "--model"
	FlagReasoningEffort = "--reasoning-effort"
	FlagAuto            = "--auto"
	FlagEnabledTools    = "--enabled-tools"
	FlagDisabledTools   = "--disabled-tools"
	FlagCwd             = "--cwd"

	FlagVersion = "--version"

	OutputFormatACP = "acp"
)

// InstallCommand installs the droid CLI.
const InstallCommand = "curl -fsSL https://app.factory.ai/cli | sh"
