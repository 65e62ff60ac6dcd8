package provider

import "encoding/json"

// EventType discriminates the normalized lifecycle events.
type EventType string

// Normalized event types.
const (
	EventStarted   EventType = "started"
	EventAction    EventType = "action"
	EventCompleted EventType = "completed"
)

// Event is a normalized lifecycle event produced by an engine run.
// The set of implementations is closed: StartedEvent, ActionEvent and
// CompletedEvent.
type Event interface {
	Type() EventType
	EngineName() string

	isEvent()
}

// ResumeToken lets a later request continue a session. Tokens compare by value.
type ResumeToken struct {
	Engine string `json:"engine"`
	Value  string `json:"value"`
}

// NewResumeToken returns a pointer to a token, or nil if value is empty.
func NewResumeToken(engine, value string) *ResumeToken {
	if value == "" {
		return nil
	}
	return &ResumeToken{Engine: engine, Value: value}
}

// ActionKind classifies an action.
type ActionKind string

// Action kinds.
const (
	ActionTool ActionKind = "tool"
	ActionNote ActionKind = "note"
)

// ActionPhase is the lifecycle point an ActionEvent reports.
type ActionPhase string

// Action phases.
const (
	PhaseStarted   ActionPhase = "started"
	PhaseUpdated   ActionPhase = "updated"
	PhaseCompleted ActionPhase = "completed"
)

// Level is the severity attached to an ActionEvent.
type Level string

// Levels.
const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Action is an auxiliary step the agent took, such as a tool call.
type Action struct {
	ID     string         `json:"id"`
	Kind   ActionKind     `json:"kind"`
	Title  string         `json:"title"`
	Detail map[string]any `json:"detail,omitempty"`
}

// StartedEvent is emitted once per run, when the session id becomes known.
type StartedEvent struct {
	Engine string      `json:"engine"`
	Resume ResumeToken `json:"resume"`
	Title  string      `json:"title,omitempty"`
}

// ActionEvent reports an Action.
type ActionEvent struct {
	Engine  string      `json:"engine"`
	Action  Action      `json:"action"`
	Phase   ActionPhase `json:"phase"`
	OK      bool        `json:"ok"`
	Message *string     `json:"message,omitempty"`
	Level   Level       `json:"level"`
}

// CompletedEvent is the terminal event of a run.
type CompletedEvent struct {
	Engine string       `json:"engine"`
	OK     bool         `json:"ok"`
	Answer string       `json:"answer"`
	Resume *ResumeToken `json:"resume,omitempty"`
	Error  *string      `json:"error,omitempty"`
}

func (StartedEvent) Type() EventType   { return EventStarted }
func (ActionEvent) Type() EventType    { return EventAction }
func (CompletedEvent) Type() EventType { return EventCompleted }

func (e StartedEvent) EngineName() string   { return e.Engine }
func (e ActionEvent) EngineName() string    { return e.Engine }
func (e CompletedEvent) EngineName() string { return e.Engine }

func (StartedEvent) isEvent()   {}
func (ActionEvent) isEvent()    {}
func (CompletedEvent) isEvent() {}

// ErrorText returns the completion error, or "" if none.
func (e CompletedEvent) ErrorText() string {
	if e.Error == nil {
		return ""
	}
	return *e.Error
}

// MarshalEvent encodes an event as a JSON object with a "type" field, the
// format written by droid-acp translate.
func MarshalEvent(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	typ, _ := json.Marshal(e.Type())
	fields["type"] = typ
	return json.Marshal(fields)
}

// StringPtr returns a pointer to s. Convenience for optional event fields.
func StringPtr(s string) *string {
	return &s
}
