package acpcontract

import "strings"

// Stream event types emitted by droid exec --output-format acp.
const (
	// EventRunPrefix prefixes every run lifecycle event.
	EventRunPrefix = "run."

	EventRunCreated    = "run.created"
	EventRunInProgress = "run.in-progress"
	EventRunAwaiting   = "run.awaiting"
	EventRunCompleted  = "run.completed"
	EventRunFailed     = "run.failed"
	EventRunCancelled  = "run.cancelled"

	EventMessageCreated   = "message.created"
	EventMessagePart      = "message.part"
	EventMessageCompleted = "message.completed"

	EventError = "error"
)

// Field names read from stream events.
const (
	FieldType        = "type"
	FieldRun         = "run"
	FieldSessionID   = "session_id"
	FieldError       = "error"
	FieldMessage     = "message"
	FieldPart        = "part"
	FieldParts       = "parts"
	FieldRole        = "role"
	FieldContentType = "content_type"
	FieldContent     = "content"
	FieldMetadata    = "metadata"
	FieldKind        = "kind"
	FieldToolName    = "tool_name"
	FieldToolInput   = "tool_input"
	FieldToolOutput  = "tool_output"
)

// Content and metadata values.
const (
	ContentTypeText = "text/plain"

	// MetadataKindTrajectory marks a part that records a tool call or note.
	MetadataKindTrajectory = "trajectory"

	// RolePrefixAgent matches "agent" and "agent/<name>" roles.
	RolePrefixAgent = "agent"
	RoleUser        = "user"

	// ModeStream is the request mode used for streaming runs.
	ModeStream = "stream"
)

// Header framing.
const (
	// HeaderContentLength is matched case-insensitively.
	HeaderContentLength = "Content-Length:"
	HeaderTerminator    = "\r\n\r\n"
)

// Line framing (text/event-stream style) markers.
const (
	PrefixData = "data:"

	SentinelDone      = "[DONE]"
	SentinelDoneLower = "done"
)

// ControlPrefixes are event-stream control lines that carry no data.
// Matched case-insensitively against the trimmed line.
var ControlPrefixes = []string{":", "event:", "id:", "retry:"}

// IsRunEvent reports whether evtType belongs to the run lifecycle family.
func IsRunEvent(evtType string) bool {
	return strings.HasPrefix(evtType, EventRunPrefix)
}

// IsTerminalRunEvent reports whether evtType ends a run.
func IsTerminalRunEvent(evtType string) bool {
	switch evtType {
	case EventRunCompleted, EventRunFailed, EventRunCancelled:
		return true
	}
	return false
}

// IsSentinel reports whether a data line marks the end of the stream.
// The comparison is case-sensitive.
func IsSentinel(line string) bool {
	return line == SentinelDone || line == SentinelDoneLower
}

// IsControlLine reports whether line is an event-stream control line.
func IsControlLine(line string) bool {
	lowered := strings.ToLower(strings.TrimSpace(line))
	for _, prefix := range ControlPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}
