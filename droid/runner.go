package droid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/acpkit/provider"
)

// maxTailBytes bounds the stderr and unparsable-output text kept per run.
const maxTailBytes = 64 * 1024

// maxStderrLength limits stderr output in completion errors.
const maxStderrLength = 500

// defaultWaitDelay bounds how long output pipes stay open after droid exits
// or is killed. A grandchild that inherited them cannot hold the run open.
const defaultWaitDelay = 5 * time.Second

// timedOutMessage starts the error text of a run that hit its timeout.
const timedOutMessage = "droid timed out"

// Runner launches droid and translates its stream into provider events.
// A Runner holds no per-run state and may run concurrently.
type Runner struct {
	cfg        Config
	translator Translator
	resume     *ResumeExtractor
	logger     *slog.Logger
	tracer     trace.Tracer
	timeout    time.Duration
	waitDelay  time.Duration
	env        map[string]string
	workdir    string
	onInvalid  func(InvalidInput)
}

var _ provider.EngineRunner[StreamState] = (*Runner)(nil)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeout bounds each run, overriding Config.Timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// WithWaitDelay sets how long output pipes may stay open after droid exits
// or is killed. Default: 5s.
func WithWaitDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// WithEnv adds environment variables to the droid process.
func WithEnv(env map[string]string) RunnerOption {
	return func(r *Runner) {
		if r.env == nil {
			r.env = make(map[string]string)
		}
		for k, v := range env {
			r.env[k] = v
		}
	}
}

// WithWorkdir sets the working directory of the droid process.
func WithWorkdir(dir string) RunnerOption {
	return func(r *Runner) { r.workdir = dir }
}

// WithDiagnosticHandler receives payloads that were neither JSON nor
// control lines. Default: log at warn level.
func WithDiagnosticHandler(fn func(InvalidInput)) RunnerOption {
	return func(r *Runner) { r.onInvalid = fn }
}

// WithResumeExtractor replaces the resume-hint extractor used when
// FallbackToText is set.
func WithResumeExtractor(x *ResumeExtractor) RunnerOption {
	return func(r *Runner) {
		if x != nil {
			r.resume = x
		}
	}
}

// WithTracer sets the tracer for run spans. Default: the global provider.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, provider.NewError(Engine, "configure", fmt.Errorf("%w: %w", provider.ErrInvalidConfig, err), false)
	}
	r := &Runner{
		cfg:        cfg,
		translator: NewTranslator(),
		logger:     slog.Default(),
		tracer:     tracer,
		timeout:    cfg.Timeout,
		waitDelay:  defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.resume == nil {
		r.resume = NewResumeExtractor(Engine, cfg.command())
	}
	if r.onInvalid == nil {
		logger := r.logger
		r.onInvalid = func(in InvalidInput) {
			logger.Warn("droid emitted invalid input", slog.String("line", in.Line), slog.Any("error", in.Err))
		}
	}
	return r, nil
}

// Config returns the runner's settings.
func (r *Runner) Config() Config { return r.cfg }

// Engine implements provider.EngineRunner.
func (r *Runner) Engine() string { return Engine }

// Command implements provider.EngineRunner.
func (r *Runner) Command() string { return r.cfg.command() }

// BuildArgs implements provider.EngineRunner.
func (r *Runner) BuildArgs() []string { return r.cfg.BuildArgs() }

// NewState implements provider.EngineRunner.
func (r *Runner) NewState() StreamState { return NewStreamState() }

// FrameMode returns the framing selected by lsp_framing.
func (r *Runner) FrameMode() FrameMode { return r.cfg.FrameMode() }

// Translate implements provider.EngineRunner.
func (r *Runner) Translate(state StreamState, data any, prior *provider.ResumeToken) (StreamState, []provider.Event) {
	return r.translator.TranslateValue(state, data, prior)
}

// StdinPayload returns the bytes written to droid's stdin for a run.
func (r *Runner) StdinPayload(prompt string, resume *provider.ResumeToken) ([]byte, error) {
	return StdinPayload(r.cfg, prompt, resume)
}

// ResumeExtractor returns the extractor used for text fallback.
func (r *Runner) ResumeExtractor() *ResumeExtractor { return r.resume }

// Run starts droid for prompt and returns its events. The channel is closed
// after exactly one CompletedEvent; if droid exits, times out or is
// cancelled without reporting one, a failed completion is synthesized.
//
// Errors are returned only when the process cannot be started.
func (r *Runner) Run(ctx context.Context, prompt string, resume *provider.ResumeToken) (<-chan provider.Event, error) {
	if resume != nil && resume.Engine != "" && resume.Engine != Engine {
		return nil, provider.NewError(Engine, "run",
			fmt.Errorf("%w: resume token belongs to %q", provider.ErrInvalidConfig, resume.Engine), false)
	}

	payload, err := r.StdinPayload(prompt, resume)
	if err != nil {
		return nil, provider.NewError(Engine, "run", err, false)
	}

	runID := uuid.NewString()
	logger := r.logger.With(slog.String("run_id", runID))

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	runCtx, span := r.tracer.Start(runCtx, "droid.run", trace.WithAttributes(
		attribute.String("droid.run_id", runID),
		attribute.String("droid.command", r.Command()),
		attribute.String("droid.framing", r.FrameMode().String()),
		attribute.Bool("droid.resume", resume != nil),
	))

	fail := func(err error) (<-chan provider.Event, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		cancel()
		return nil, err
	}

	cmd := exec.CommandContext(runCtx, r.Command(), r.BuildArgs()...)
	r.setupCmd(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fail(provider.NewError(Engine, "run", fmt.Errorf("%s: %w", PipesErrorMessage, err), false))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return fail(provider.NewError(Engine, "run", fmt.Errorf("%s: %w", PipesErrorMessage, err), false))
	}
	// exec copies stderr itself, so WaitDelay bounds it.
	stderrTail := &tailBuffer{}
	cmd.Stderr = stderrTail

	// After a kill, a grandchild may still hold stdout open; close our end
	// once the wait delay passes.
	cmd.Cancel = func() error {
		time.AfterFunc(r.waitDelay, func() { _ = stdout.Close() })
		return cmd.Process.Kill()
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", provider.ErrCLINotFound, r.Command())
		} else {
			err = fmt.Errorf("start command: %w", err)
		}
		return fail(provider.NewError(Engine, "run", err, false))
	}
	logger.Debug("droid started", slog.Int("pid", cmd.Process.Pid), slog.Any("args", r.BuildArgs()))

	rn := &run{
		runner: r,
		logger: logger,
		span:   span,
		prior:  resume,
		state:  r.NewState(),
		out:    make(chan provider.Event),
	}

	go func() {
		defer stdin.Close()
		if _, err := stdin.Write(payload); err != nil {
			logger.Debug("write stdin", slog.Any("error", err))
		}
	}()

	go func() {
		defer close(rn.out)
		defer cancel()
		defer span.End()

		rn.consume(ctx, stdout)
		waitErr := cmd.Wait()

		if !rn.completed {
			rn.synthesize(ctx, runCtx, waitErr, stderrTail.String())
		}
		rn.finish(ctx)
	}()

	return rn.out, nil
}

func (r *Runner) setupCmd(cmd *exec.Cmd) {
	cmd.WaitDelay = r.waitDelay
	if r.workdir != "" {
		cmd.Dir = r.workdir
	}
	if len(r.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range r.env {
			cmd.Env = setEnvVar(cmd.Env, k, v)
		}
	}
}

// setEnvVar updates or adds an environment variable in an env slice.
func setEnvVar(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// run is the state of one Runner.Run invocation. It is owned by the
// goroutine reading stdout.
type run struct {
	runner *Runner
	logger *slog.Logger
	span   trace.Span
	prior  *provider.ResumeToken

	state     StreamState
	completed bool
	final     provider.CompletedEvent
	unparsed  tailBuffer
	out       chan provider.Event
}

// consume reads frames until EOF. After the first CompletedEvent the rest
// of the stream is drained without translation.
func (rn *run) consume(ctx context.Context, stdout io.Reader) {
	frames := NewFrameReader(stdout, rn.runner.FrameMode(), WithFrameLogger(rn.logger))
	for {
		frame, err := frames.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				rn.logger.Warn("droid stdout read failed", slog.Any("error", err))
				_, _ = io.Copy(io.Discard, stdout)
			}
			return
		}
		if rn.completed {
			continue
		}

		res := Decode(frame)
		if res.Invalid != nil {
			rn.runner.onInvalid(*res.Invalid)
			rn.unparsed.WriteString(res.Invalid.Line)
			rn.unparsed.WriteString("\n")
			continue
		}
		if res.Value == nil {
			continue
		}

		var events []provider.Event
		rn.state, events = rn.runner.Translate(rn.state, res.Value, rn.prior)
		for _, ev := range events {
			if !rn.emit(ctx, ev) {
				_, _ = io.Copy(io.Discard, stdout)
				return
			}
			if c, ok := ev.(provider.CompletedEvent); ok {
				rn.completed = true
				rn.final = c
				break
			}
		}
	}
}

// emit delivers ev unless the caller's context is done.
func (rn *run) emit(ctx context.Context, ev provider.Event) bool {
	rn.span.AddEvent(string(ev.Type()))
	select {
	case rn.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// synthesize emits a failed completion for a run that ended without one.
func (rn *run) synthesize(ctx, runCtx context.Context, waitErr error, stderr string) {
	resume := rn.state.ResumeToken(Engine, rn.prior)
	if rn.state.SessionID == "" && rn.runner.cfg.FallbackToText {
		text := rn.unparsed.String() + "\n" + stderr
		if tok, ok := rn.runner.resume.Extract(text); ok {
			resume = &tok
		}
	}

	var msg string
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		msg = fmt.Sprintf("%s after %s", timedOutMessage, rn.runner.timeout)
	case ctx.Err() != nil:
		msg = "droid run cancelled"
	case waitErr != nil:
		msg = fmt.Sprintf("droid failed: %v", waitErr)
	default:
		msg = "droid finished without a completion event"
	}
	if tail := sanitizeStderr(stderr); tail != "" {
		msg += ": " + tail
	}

	rn.logger.Warn("synthesizing failed completion", slog.String("reason", msg))
	completed := provider.CompletedEvent{
		Engine: Engine,
		OK:     false,
		Answer: rn.state.Text,
		Resume: resume,
		Error:  provider.StringPtr(msg),
	}
	rn.completed = true
	rn.final = completed

	// Deliver even when the run context expired; only the caller's own
	// cancellation stops delivery.
	rn.emit(ctx, completed)
}

func (rn *run) finish(ctx context.Context) {
	outcome := "ok"
	if !rn.final.OK {
		outcome = "failed"
		rn.span.SetStatus(codes.Error, rn.final.ErrorText())
	}
	if rn.final.Resume != nil {
		rn.span.SetAttributes(attribute.String("droid.session_id", rn.final.Resume.Value))
	}
	runCounter.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	rn.logger.Debug("droid run finished",
		slog.String("outcome", outcome),
		slog.Int("actions", rn.state.ActionSeq))
}

// sanitizeStderr prepares stderr output for inclusion in error messages.
func sanitizeStderr(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderrLength {
		stderr = "(truncated) ..." + stderr[len(stderr)-maxStderrLength:]
	}
	return stderr
}

// tailBuffer keeps the last maxTailBytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - maxTailBytes; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) WriteString(s string) {
	_, _ = t.Write([]byte(s))
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// Collect drains events and returns the completion with the events that
// preceded it. It returns provider.ErrNoCompletion if the channel closes
// first, and ctx.Err() if ctx is done.
func Collect(ctx context.Context, events <-chan provider.Event) (provider.CompletedEvent, []provider.Event, error) {
	var seen []provider.Event
	for {
		select {
		case <-ctx.Done():
			return provider.CompletedEvent{}, seen, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return provider.CompletedEvent{}, seen, provider.ErrNoCompletion
			}
			if c, ok := ev.(provider.CompletedEvent); ok {
				return c, seen, nil
			}
			seen = append(seen, ev)
		}
	}
}
