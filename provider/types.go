package provider

import (
	"encoding/json"
	"time"
)

// Request configures a single agent run.
type Request struct {
	// SystemPrompt is prepended to the user prompt for engines without a
	// separate system channel.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages is the conversation to send. Only user turns are forwarded
	// to agent CLIs; the agent keeps its own history per session.
	Messages []Message `json:"messages"`

	// Model overrides the configured model for this request.
	Model string `json:"model,omitempty"`

	// Resume continues a previous session when set.
	Resume *ResumeToken `json:"resume,omitempty"`

	// Options holds engine-specific settings not covered by standard fields.
	Options map[string]any `json:"options,omitempty"`
}

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a simple text message.
func NewTextMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Response is the outcome of a completed run.
type Response struct {
	// Content is the final answer text.
	Content string `json:"content"`

	// ToolCalls lists tool actions the agent reported during the run.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Model is the model that was requested, if any.
	Model string `json:"model,omitempty"`

	// FinishReason is "stop" for successful runs and "error" otherwise.
	FinishReason string `json:"finish_reason"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// SessionID is the resume token value, empty if the agent never issued one.
	SessionID string `json:"session_id,omitempty"`

	// Metadata holds engine-specific response data.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolCall is a tool invocation reported by the agent.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	// Content is the text content in this chunk.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations reported since the last chunk.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Done indicates this is the final chunk.
	Done bool `json:"done"`

	// Error is non-nil if the run failed.
	Error error `json:"-"`
}

// PromptText flattens the request into the single prompt string agent CLIs
// accept: the system prompt, then the user turns in order.
func (r Request) PromptText() string {
	var text string
	if r.SystemPrompt != "" {
		text = r.SystemPrompt + "\n\n"
	}
	first := true
	for _, m := range r.Messages {
		if m.Role != RoleUser {
			continue
		}
		if !first {
			text += "\n"
		}
		text += m.Content
		first = false
	}
	return text
}
