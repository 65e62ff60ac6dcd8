package droid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/provider"
)

// Client adapts a Runner to provider.Client.
type Client struct {
	runner *Runner
	opts   []RunnerOption

	// systemPrompt is used for requests that carry none.
	systemPrompt string
}

var _ provider.Client = (*Client)(nil)

// NewClient returns a Client that runs droid with cfg.
func NewClient(cfg Config, opts ...RunnerOption) (*Client, error) {
	runner, err := NewRunner(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{runner: runner, opts: opts}, nil
}

// Runner returns the underlying runner.
func (c *Client) Runner() *Runner {
	return c.runner
}

func (c *Client) prompt(req provider.Request) string {
	if req.SystemPrompt == "" {
		req.SystemPrompt = c.systemPrompt
	}
	return req.PromptText()
}

// runnerFor returns a runner honoring a per-request model override.
func (c *Client) runnerFor(req provider.Request) (*Runner, error) {
	if req.Model == "" || req.Model == c.runner.cfg.Model {
		return c.runner, nil
	}
	cfg := c.runner.cfg
	cfg.Model = req.Model
	return NewRunner(cfg, c.opts...)
}

// Complete implements provider.Client. A run that completes with ok=false
// returns an error wrapping provider.ErrRunFailed.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	start := time.Now()

	runner, err := c.runnerFor(req)
	if err != nil {
		return nil, err
	}
	events, err := runner.Run(ctx, c.prompt(req), req.Resume)
	if err != nil {
		return nil, err
	}

	completed, seen, err := Collect(ctx, events)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, provider.NewError(Engine, "complete", fmt.Errorf("%w: %w", provider.ErrTimeout, err), true)
		}
		return nil, provider.NewError(Engine, "complete", err, false)
	}
	if !completed.OK {
		return nil, runError(ctx, "complete", completed.ErrorText())
	}

	resp := &provider.Response{
		Content:      completed.Answer,
		Model:        runner.cfg.Model,
		FinishReason: "stop",
		Duration:     time.Since(start),
		Metadata:     map[string]any{"actions": len(actionsOf(seen))},
	}
	for _, a := range actionsOf(seen) {
		if tc, ok := toolCall(a); ok {
			resp.ToolCalls = append(resp.ToolCalls, tc)
		}
	}
	if completed.Resume != nil {
		resp.SessionID = completed.Resume.Value
	}
	return resp, nil
}

// Stream implements provider.Client. droid reports no text deltas, so tool
// actions arrive as ToolCalls chunks and the answer arrives in the final
// chunk.
func (c *Client) Stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	runner, err := c.runnerFor(req)
	if err != nil {
		return nil, err
	}
	events, err := runner.Run(ctx, c.prompt(req), req.Resume)
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		for ev := range events {
			var chunk provider.StreamChunk
			switch e := ev.(type) {
			case provider.ActionEvent:
				tc, ok := toolCall(e)
				if !ok {
					continue
				}
				chunk.ToolCalls = []provider.ToolCall{tc}
			case provider.CompletedEvent:
				chunk.Done = true
				chunk.Content = e.Answer
				if !e.OK {
					chunk.Error = runError(ctx, "stream", e.ErrorText())
				}
			default:
				continue
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Provider implements provider.Client.
func (c *Client) Provider() string {
	return Engine
}

// Capabilities implements provider.Client.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.DroidCapabilities
}

// Close implements provider.Client.
func (c *Client) Close() error {
	return nil
}

func actionsOf(events []provider.Event) []provider.ActionEvent {
	var out []provider.ActionEvent
	for _, ev := range events {
		if a, ok := ev.(provider.ActionEvent); ok {
			out = append(out, a)
		}
	}
	return out
}

// toolCall converts a tool action. Notes are not tool calls.
func toolCall(a provider.ActionEvent) (provider.ToolCall, bool) {
	if a.Action.Kind != provider.ActionTool {
		return provider.ToolCall{}, false
	}
	args, err := json.Marshal(a.Action.Detail[acpcontract.FieldToolInput])
	if err != nil {
		args = []byte("null")
	}
	return provider.ToolCall{ID: a.Action.ID, Name: a.Action.Title, Arguments: args}, true
}

// runError builds the error for a failed run. Timeouts and rate limiting
// also wrap provider.ErrTimeout and provider.ErrRateLimited.
func runError(ctx context.Context, op, msg string) error {
	var err error
	switch {
	case strings.HasPrefix(msg, timedOutMessage), errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w: %s", provider.ErrRunFailed, provider.ErrTimeout, msg)
	case isRateLimited(msg):
		err = fmt.Errorf("%w: %w: %s", provider.ErrRunFailed, provider.ErrRateLimited, msg)
	default:
		err = fmt.Errorf("%w: %s", provider.ErrRunFailed, msg)
	}
	return provider.NewError(Engine, op, err, isRetryableError(msg))
}

func isRateLimited(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") || strings.Contains(errLower, "429")
}

// isRetryableError checks if an error message indicates a transient error.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return isRateLimited(errMsg) ||
		strings.Contains(errLower, "timed out") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503")
}
