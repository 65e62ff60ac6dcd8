package acpcontract

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// TestedCLIVersion is the droid CLI version the ACP event contract was checked against.
const TestedCLIVersion = "0.19.0"

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// CLIVersion is a parsed semver-like CLI version.
type CLIVersion struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

// String returns the raw version text.
func (v *CLIVersion) String() string {
	return v.Raw
}

// ParseVersion extracts the first x.y.z triple from s, so banners such as
// "droid 0.19.0 (build abc)" parse.
func ParseVersion(s string) (*CLIVersion, error) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	return &CLIVersion{Major: major, Minor: minor, Patch: patch, Raw: m[0]}, nil
}

// MustParseVersion parses a version and panics on invalid input.
func MustParseVersion(s string) *CLIVersion {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// DetectCLIVersion runs `<command> --version` and parses the output.
func DetectCLIVersion(ctx context.Context, command string) (*CLIVersion, error) {
	if command == "" {
		command = DefaultCommand
	}
	out, err := exec.CommandContext(ctx, command, FlagVersion).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("run %s %s: %w", command, FlagVersion, err)
	}
	return ParseVersion(string(out))
}

// Compare returns -1 when v < other, 0 when equal, and 1 when v > other.
func (v *CLIVersion) Compare(other *CLIVersion) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

// IsNewerThan reports whether v is newer than other.
func (v *CLIVersion) IsNewerThan(other *CLIVersion) bool {
	return v.Compare(other) > 0
}

// WarnIfUntested logs a warning when v is newer than TestedCLIVersion.
func (v *CLIVersion) WarnIfUntested() {
	if v.IsNewerThan(MustParseVersion(TestedCLIVersion)) {
		slog.Warn("droid CLI version is newer than tested version",
			"cli_version", v.Raw,
			"tested_version", TestedCLIVersion,
			"note", "ACP event schema may have changed")
	}
}

// CheckVersion detects the CLI version and logs compatibility warnings.
// Returns nil when the version cannot be determined.
func CheckVersion(ctx context.Context, command string) *CLIVersion {
	v, err := DetectCLIVersion(ctx, command)
	if err != nil {
		slog.Debug("could not detect droid CLI version", "error", err)
		return nil
	}
	v.WarnIfUntested()
	return v
}
