package droid

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/provider"
)

// resumeTokenGroup is the capture group a resume pattern must define.
const resumeTokenGroup = "token"

// ResumeExtractor finds a "<command> resume <token>" hint in freeform
// output. It is a fallback for runs that never reported a session id; the
// wording is not a stable interface, so the pattern can be replaced.
type ResumeExtractor struct {
	engine  string
	command string
	re      *regexp.Regexp
	group   int
}

// DefaultResumePattern returns the pattern for command. A matching line is
// the whole line, optionally wrapped in backticks, e.g. "`droid resume abc12345`".
func DefaultResumePattern(command string) string {
	name := filepath.Base(command)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = acpcontract.DefaultCommand
	}
	return `(?im)^\s*` + "`?" + regexp.QuoteMeta(name) +
		`\s+resume\s+(?P<token>[A-Za-z0-9\-]{8,})` + "`?" + `\s*$`
}

// NewResumeExtractor returns an extractor for command using
// DefaultResumePattern.
func NewResumeExtractor(engine, command string) *ResumeExtractor {
	x, err := NewResumeExtractorPattern(engine, DefaultResumePattern(command))
	if err != nil {
		// The default pattern is built from a quoted literal and always compiles.
		panic(err)
	}
	x.command = command
	return x
}

// NewResumeExtractorPattern compiles a custom pattern. The pattern must have a
// named group "token".
func NewResumeExtractorPattern(engine, pattern string) (*ResumeExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile resume pattern: %w", err)
	}
	group := re.SubexpIndex(resumeTokenGroup)
	if group < 0 {
		return nil, fmt.Errorf("resume pattern %q has no (?P<%s>...) group", pattern, resumeTokenGroup)
	}
	return &ResumeExtractor{engine: engine, re: re, group: group}, nil
}

// Pattern returns the compiled pattern source.
func (x *ResumeExtractor) Pattern() string {
	return x.re.String()
}

// Extract returns the token from the first matching line in text.
func (x *ResumeExtractor) Extract(text string) (provider.ResumeToken, bool) {
	m := x.re.FindStringSubmatch(text)
	if m == nil || m[x.group] == "" {
		return provider.ResumeToken{}, false
	}
	return provider.ResumeToken{Engine: x.engine, Value: m[x.group]}, true
}

// IsResumeLine reports whether line alone is a resume hint.
func (x *ResumeExtractor) IsResumeLine(line string) bool {
	_, ok := x.Extract(strings.TrimRight(line, "\r\n"))
	return ok
}

// FormatResume renders the command a user would type to continue tok.
func (x *ResumeExtractor) FormatResume(tok provider.ResumeToken) string {
	name := acpcontract.DefaultCommand
	if x.command != "" {
		name = filepath.Base(x.command)
	}
	return fmt.Sprintf("`%s %s %s`", name, acpcontract.CommandResume, tok.Value)
}
