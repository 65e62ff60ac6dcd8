package droid_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/acpkit/droid"
	"github.com/randalmurphal/acpkit/provider"
)

const fakeDroid = `#!/bin/sh
printf '%s\n' "$@" > "$0.args"
cat > "$0.stdin"
if [ -f "$0.err" ]; then cat "$0.err" >&2; fi
if [ -n "$FAKE_SLEEP" ]; then exec sleep "$FAKE_SLEEP"; fi
if [ -n "$FAKE_ORPHAN" ]; then sleep "$FAKE_ORPHAN" & fi
cat "$0.out"
exit ${FAKE_EXIT:-0}
`

// fakeCLI writes a shell script that records its args and stdin, writes
// stderr, then prints stdout.
type fakeCLI struct {
	path string
}

func newFakeCLI(t *testing.T, stdout, stderr string) fakeCLI {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "droid")
	require.NoError(t, os.WriteFile(path, []byte(fakeDroid), 0o755))
	require.NoError(t, os.WriteFile(path+".out", []byte(stdout), 0o644))
	if stderr != "" {
		require.NoError(t, os.WriteFile(path+".err", []byte(stderr), 0o644))
	}
	return fakeCLI{path: path}
}

func (f fakeCLI) args(t *testing.T) []string {
	data, err := os.ReadFile(f.path + ".args")
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func (f fakeCLI) stdin(t *testing.T) []byte {
	data, err := os.ReadFile(f.path + ".stdin")
	require.NoError(t, err)
	return data
}

func lineConfig(cmd string) droid.Config {
	cfg := droid.DefaultConfig()
	cfg.Command = cmd
	cfg.LSPFraming = false
	return cfg
}

func collectAll(t *testing.T, ch <-chan provider.Event) []provider.Event {
	t.Helper()
	var out []provider.Event
	timeout := time.After(20 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("run did not finish")
		}
	}
}

func lastCompleted(t *testing.T, events []provider.Event) provider.CompletedEvent {
	t.Helper()
	require.NotEmpty(t, events)
	c, ok := events[len(events)-1].(provider.CompletedEvent)
	require.True(t, ok, "last event is %T", events[len(events)-1])
	return c
}

func TestRunner_LineStream(t *testing.T) {
	stdout := strings.Join([]string{
		`: keepalive`,
		`event: message`,
		`data: {"type":"run.created","run":{"session_id":"sess-1"}}`,
		`not json at all`,
		`{"type":"message.part","part":{"content_type":"text/plain","content":"Hello, ","metadata":{"kind":"trajectory","tool_name":"Read","tool_input":{"file_path":"a.go"}}}}`,
		`{"type":"message.part","part":{"content_type":"text/plain","content":"world"}}`,
		`{"type":"run.completed","run":{"session_id":"sess-1"}}`,
		`{"type":"run.failed","run":{"session_id":"sess-1"}}`,
		`data: [DONE]`,
	}, "\n") + "\n"
	cli := newFakeCLI(t, stdout, "")

	var mu sync.Mutex
	var diagnostics []string
	cfg := lineConfig(cli.path)
	cfg.Model = "m1"
	runner, err := droid.NewRunner(cfg, droid.WithDiagnosticHandler(func(in droid.InvalidInput) {
		mu.Lock()
		defer mu.Unlock()
		diagnostics = append(diagnostics, in.Line)
	}))
	require.NoError(t, err)

	ch, err := runner.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)
	events := collectAll(t, ch)

	require.Len(t, events, 3)
	assert.Equal(t, provider.EventStarted, events[0].Type())
	assert.Equal(t, "Read", events[1].(provider.ActionEvent).Action.Title)

	completed := lastCompleted(t, events)
	assert.True(t, completed.OK)
	assert.Equal(t, "Hello, world", completed.Answer)
	assert.Equal(t, &provider.ResumeToken{Engine: "droid", Value: "sess-1"}, completed.Resume)

	mu.Lock()
	assert.Equal(t, []string{"not json at all"}, diagnostics)
	mu.Unlock()

	assert.Equal(t, []string{"exec", "--output-format", "acp", "--model", "m1"}, cli.args(t))
	want, err := droid.StdinPayload(cfg, "say hello", nil)
	require.NoError(t, err)
	assert.Equal(t, want, cli.stdin(t))
}

func TestRunner_HeaderStream(t *testing.T) {
	var out strings.Builder
	for _, body := range []string{
		`{"type":"run.created","run":{"session_id":"sess-h"}}`,
		`{"type":"message.completed","message":{"role":"agent","parts":[{"content_type":"text/plain","content":"done"}]}}`,
		`{"type":"run.completed","run":{}}`,
	} {
		out.Write(droid.EncodeHeaderFrame([]byte(body)))
	}
	cli := newFakeCLI(t, out.String(), "")

	cfg := droid.DefaultConfig()
	cfg.Command = cli.path
	runner, err := droid.NewRunner(cfg)
	require.NoError(t, err)

	resume := &provider.ResumeToken{Engine: "droid", Value: "sess-h"}
	ch, err := runner.Run(context.Background(), "continue", resume)
	require.NoError(t, err)
	events := collectAll(t, ch)

	completed := lastCompleted(t, events)
	assert.True(t, completed.OK)
	assert.Equal(t, "done", completed.Answer)

	stdin := string(cli.stdin(t))
	assert.True(t, strings.HasPrefix(stdin, "Content-Length: "))
	assert.Contains(t, stdin, `"session_id":"sess-h"`)
}

func TestRunner_SynthesizesCompletion(t *testing.T) {
	stdout := textPart("partial") + "\n" + "To resume, run:\n`droid resume abcd1234efgh`\n"
	cli := newFakeCLI(t, stdout, "fatal: model overloaded\n")

	runner, err := droid.NewRunner(lineConfig(cli.path),
		droid.WithEnv(map[string]string{"FAKE_EXIT": "3"}),
		droid.WithDiagnosticHandler(func(droid.InvalidInput) {}))
	require.NoError(t, err)

	ch, err := runner.Run(context.Background(), "go", nil)
	require.NoError(t, err)
	events := collectAll(t, ch)

	require.Len(t, events, 1)
	completed := lastCompleted(t, events)
	assert.False(t, completed.OK)
	assert.Equal(t, "partial", completed.Answer)
	assert.Equal(t, &provider.ResumeToken{Engine: "droid", Value: "abcd1234efgh"}, completed.Resume)
	assert.Contains(t, completed.ErrorText(), "droid failed")
	assert.Contains(t, completed.ErrorText(), "model overloaded")
}

func TestRunner_ResumeHintInStderr(t *testing.T) {
	cli := newFakeCLI(t, "", "droid resume fromstderr1\n")

	runner, err := droid.NewRunner(lineConfig(cli.path))
	require.NoError(t, err)

	ch, err := runner.Run(context.Background(), "go", nil)
	require.NoError(t, err)
	completed := lastCompleted(t, collectAll(t, ch))

	assert.False(t, completed.OK)
	assert.Equal(t, "droid finished without a completion event: droid resume fromstderr1", completed.ErrorText())
	require.NotNil(t, completed.Resume)
	assert.Equal(t, "fromstderr1", completed.Resume.Value)
}

func TestRunner_FallbackDisabledKeepsPrior(t *testing.T) {
	cli := newFakeCLI(t, "`droid resume abcd1234efgh`\n", "")

	cfg := lineConfig(cli.path)
	cfg.FallbackToText = false
	runner, err := droid.NewRunner(cfg, droid.WithDiagnosticHandler(func(droid.InvalidInput) {}))
	require.NoError(t, err)

	prior := &provider.ResumeToken{Engine: "droid", Value: "prior-token"}
	ch, err := runner.Run(context.Background(), "go", prior)
	require.NoError(t, err)
	completed := lastCompleted(t, collectAll(t, ch))

	assert.False(t, completed.OK)
	assert.Equal(t, prior, completed.Resume)
}

func TestRunner_KnownSessionBeatsTextHint(t *testing.T) {
	stdout := `{"type":"run.created","run":{"session_id":"structured"}}` + "\n" + "droid resume fromtext1234\n"
	cli := newFakeCLI(t, stdout, "")

	runner, err := droid.NewRunner(lineConfig(cli.path), droid.WithDiagnosticHandler(func(droid.InvalidInput) {}))
	require.NoError(t, err)

	ch, err := runner.Run(context.Background(), "go", nil)
	require.NoError(t, err)
	events := collectAll(t, ch)

	require.Len(t, events, 2)
	assert.Equal(t, "structured", lastCompleted(t, events).Resume.Value)
}

func TestRunner_Timeout(t *testing.T) {
	cli := newFakeCLI(t, textPart("slow")+"\n", "")

	runner, err := droid.NewRunner(lineConfig(cli.path),
		droid.WithTimeout(200*time.Millisecond),
		droid.WithEnv(map[string]string{"FAKE_SLEEP": "5"}))
	require.NoError(t, err)

	ch, err := runner.Run(context.Background(), "go", nil)
	require.NoError(t, err)
	completed := lastCompleted(t, collectAll(t, ch))

	assert.False(t, completed.OK)
	assert.Contains(t, completed.ErrorText(), "timed out")
}

func TestRunner_TimeoutWithOrphanHoldingStdout(t *testing.T) {
	cli := newFakeCLI(t, textPart("partial")+"\n", "")

	runner, err := droid.NewRunner(lineConfig(cli.path),
		droid.WithTimeout(300*time.Millisecond),
		droid.WithWaitDelay(100*time.Millisecond),
		droid.WithEnv(map[string]string{"FAKE_ORPHAN": "10"}))
	require.NoError(t, err)

	start := time.Now()
	ch, err := runner.Run(context.Background(), "go", nil)
	require.NoError(t, err)
	completed := lastCompleted(t, collectAll(t, ch))

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, completed.OK)
	assert.Contains(t, completed.ErrorText(), "timed out")
	assert.Equal(t, "partial", completed.Answer)
}

func TestRunner_CommandNotFound(t *testing.T) {
	runner, err := droid.NewRunner(lineConfig(filepath.Join(t.TempDir(), "no-such-droid")))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "go", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrCLINotFound))

	var provErr *provider.Error
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "droid", provErr.Provider)
	assert.Equal(t, "run", provErr.Op)
}

func TestRunner_RejectsForeignResumeToken(t *testing.T) {
	runner, err := droid.NewRunner(droid.DefaultConfig())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "go", &provider.ResumeToken{Engine: "codex", Value: "x"})
	assert.Error(t, err)
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := droid.DefaultConfig()
	cfg.Auto = "always"
	_, err := droid.NewRunner(cfg)
	require.Error(t, err)
	assert.True(t, provider.IsConfigError(err))
}

func TestRunner_EngineContract(t *testing.T) {
	cfg := droid.DefaultConfig()
	cfg.Cwd = "/src"
	runner, err := droid.NewRunner(cfg)
	require.NoError(t, err)

	var engine provider.EngineRunner[droid.StreamState] = runner
	assert.Equal(t, "droid", engine.Engine())
	assert.Equal(t, "droid", engine.Command())
	assert.Equal(t, []string{"exec", "--output-format", "acp", "--cwd", "/src"}, engine.BuildArgs())
	assert.Equal(t, droid.StreamState{}, engine.NewState())
	assert.Equal(t, droid.FrameModeHeader, runner.FrameMode())

	state, events := engine.Translate(engine.NewState(),
		map[string]any{"type": "run.created", "run": map[string]any{"session_id": "s"}}, nil)
	assert.Equal(t, "s", state.SessionID)
	require.Len(t, events, 1)
}

func TestCollect(t *testing.T) {
	ch := make(chan provider.Event, 3)
	ch <- provider.StartedEvent{Engine: "droid"}
	ch <- provider.CompletedEvent{Engine: "droid", OK: true, Answer: "a"}
	close(ch)

	completed, seen, err := droid.Collect(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "a", completed.Answer)
	assert.Len(t, seen, 1)

	empty := make(chan provider.Event)
	close(empty)
	_, _, err = droid.Collect(context.Background(), empty)
	assert.ErrorIs(t, err, provider.ErrNoCompletion)
}
