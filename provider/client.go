// Package provider defines the host-facing contract shared by agent CLI
// engines: the Client interface for request/response use, the normalized
// lifecycle events (Started, Action, Completed) a run produces, resume
// tokens, and the backend registry.
//
// # Usage
//
// Create a client through the registry:
//
//	import _ "github.com/randalmurphal/acpkit/providers"
//
//	client, err := provider.New("droid", provider.Config{
//	    Model:   "claude-sonnet-4",
//	    WorkDir: "/path/to/project",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// Hosts that want the full event stream use the engine runner directly
// (see droid.Runner) and consume provider.Event values:
//
//	for evt := range events {
//	    switch e := evt.(type) {
//	    case provider.StartedEvent:
//	    case provider.ActionEvent:
//	    case provider.CompletedEvent:
//	    }
//	}
package provider

import "context"

// Client is the request/response interface for agent CLI engines.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a request and returns the final answer.
	// The context controls cancellation and timeouts.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends a request and returns a channel of response chunks.
	// The channel is closed when streaming completes (check chunk.Done).
	// Errors during streaming are returned via chunk.Error.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// Provider returns the engine name (e.g., "droid").
	Provider() string

	// Capabilities returns what this engine natively supports.
	Capabilities() Capabilities

	// Close releases any resources held by the client.
	Close() error
}

// Capabilities describes what an engine natively supports.
type Capabilities struct {
	// Streaming indicates if the engine streams incremental events.
	Streaming bool `json:"streaming"`

	// Tools indicates if the engine invokes tools on its own.
	Tools bool `json:"tools"`

	// Sessions indicates if runs can be resumed with a ResumeToken.
	Sessions bool `json:"sessions"`

	// NativeTools lists the engine's built-in tools by name.
	NativeTools []string `json:"native_tools"`

	// ContextFile is the filename for project-specific context.
	// Empty string if the engine doesn't read one.
	ContextFile string `json:"context_file,omitempty"`
}

// HasTool checks if a native tool is available by name.
// Tool names are case-sensitive and engine-specific.
func (c Capabilities) HasTool(name string) bool {
	for _, t := range c.NativeTools {
		if t == name {
			return true
		}
	}
	return false
}

// DroidCapabilities describes the droid CLI's native capabilities.
var DroidCapabilities = Capabilities{
	Streaming:   true,
	Tools:       true,
	Sessions:    true,
	NativeTools: []string{"Read", "LS", "Grep", "Glob", "Create", "Edit", "MultiEdit", "Execute", "WebSearch", "FetchUrl", "TodoWrite"},
	ContextFile: "AGENTS.md",
}
