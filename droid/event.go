package droid

import (
	"strings"

	"github.com/randalmurphal/acpkit/acpcontract"
)

// EventKind is the discriminant of a parsed stream event.
type EventKind int

const (
	// KindUnrecognized covers values that are not objects, have no string
	// "type", or have a type outside the known set.
	KindUnrecognized EventKind = iota
	KindRun
	KindMessagePart
	KindMessage
	KindError
)

func (k EventKind) String() string {
	switch k {
	case KindRun:
		return "run"
	case KindMessagePart:
		return "message.part"
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	}
	return "unrecognized"
}

// Event is a stream event after discriminant validation. Exactly one of the
// payload pointers matching Kind is set; all are nil for KindUnrecognized
// and KindError carries only ErrorMessage.
type Event struct {
	Kind EventKind

	// Type is the raw discriminant, e.g. "run.completed". Empty when missing.
	Type string

	Run     *RunInfo
	Part    *Part
	Message *AgentMessage

	// ErrorMessage is set for KindError, and may be nil when the event
	// carried no readable message.
	ErrorMessage *string
}

// RunInfo is the run object attached to run.* events.
type RunInfo struct {
	SessionID string
	Error     *string
}

// Part is the part object of a message.part event.
type Part struct {
	ContentType string
	// Content is set only when the part's content is a string.
	Content    string
	Trajectory *Trajectory
}

// IsText reports whether the part carries plain-text content.
func (p *Part) IsText() bool {
	return p != nil && p.ContentType == acpcontract.ContentTypeText
}

// Trajectory is part metadata describing a tool call or a note.
type Trajectory struct {
	ToolName   string
	ToolInput  any
	ToolOutput any
	// Message is the raw metadata message, of any JSON type.
	Message any
}

// AgentMessage is the message object of message.created and
// message.completed events.
type AgentMessage struct {
	Role string
	// Text is the concatenation of the non-empty text/plain parts.
	Text string
}

// FromAgent reports whether the message was authored by an agent role.
func (m *AgentMessage) FromAgent() bool {
	return m != nil && strings.HasPrefix(m.Role, acpcontract.RolePrefixAgent)
}

// ParseEvent validates a decoded value and maps it onto the closed Event set.
// It never fails: anything it cannot classify is KindUnrecognized.
func ParseEvent(v any) Event {
	obj, ok := v.(map[string]any)
	if !ok {
		return Event{}
	}
	evtType, ok := obj[acpcontract.FieldType].(string)
	if !ok {
		return Event{}
	}

	switch {
	case acpcontract.IsRunEvent(evtType):
		return Event{Kind: KindRun, Type: evtType, Run: parseRun(obj[acpcontract.FieldRun])}
	case evtType == acpcontract.EventMessagePart:
		return Event{Kind: KindMessagePart, Type: evtType, Part: parsePart(obj[acpcontract.FieldPart])}
	case evtType == acpcontract.EventMessageCreated, evtType == acpcontract.EventMessageCompleted:
		return Event{Kind: KindMessage, Type: evtType, Message: parseMessage(obj[acpcontract.FieldMessage])}
	case evtType == acpcontract.EventError:
		return Event{Kind: KindError, Type: evtType, ErrorMessage: errorMessage(obj[acpcontract.FieldError])}
	}
	return Event{Type: evtType}
}

// parseRun returns nil when v is not an object.
func parseRun(v any) *RunInfo {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	run := &RunInfo{Error: errorMessage(obj[acpcontract.FieldError])}
	if id, ok := obj[acpcontract.FieldSessionID].(string); ok {
		run.SessionID = id
	}
	return run
}

func parsePart(v any) *Part {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	part := &Part{}
	part.ContentType, _ = obj[acpcontract.FieldContentType].(string)
	part.Content, _ = obj[acpcontract.FieldContent].(string)

	if meta, ok := obj[acpcontract.FieldMetadata].(map[string]any); ok &&
		meta[acpcontract.FieldKind] == acpcontract.MetadataKindTrajectory {
		traj := &Trajectory{
			ToolInput:  meta[acpcontract.FieldToolInput],
			ToolOutput: meta[acpcontract.FieldToolOutput],
			Message:    meta[acpcontract.FieldMessage],
		}
		traj.ToolName, _ = meta[acpcontract.FieldToolName].(string)
		part.Trajectory = traj
	}
	return part
}

func parseMessage(v any) *AgentMessage {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	msg := &AgentMessage{}
	msg.Role, _ = obj[acpcontract.FieldRole].(string)

	parts, _ := obj[acpcontract.FieldParts].([]any)
	var sb strings.Builder
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok || part[acpcontract.FieldContentType] != acpcontract.ContentTypeText {
			continue
		}
		if content, ok := part[acpcontract.FieldContent].(string); ok {
			sb.WriteString(content)
		}
	}
	msg.Text = sb.String()
	return msg
}

// errorMessage reads an error that is either {"message": "..."} or a bare
// string.
func errorMessage(v any) *string {
	switch e := v.(type) {
	case string:
		return &e
	case map[string]any:
		if msg, ok := e[acpcontract.FieldMessage].(string); ok {
			return &msg
		}
	}
	return nil
}
