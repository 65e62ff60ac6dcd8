package droid

import (
	"strconv"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/provider"
)

// Engine is the engine id used on events and resume tokens.
const Engine = "droid"

// DisplayTitle is the title reported on Started.
const DisplayTitle = "Droid"

// Translator maps parsed stream events to normalized events.
// The zero value is not usable; use NewTranslator.
type Translator struct {
	engine string
	title  string
}

// NewTranslator returns a translator for the droid engine.
func NewTranslator() Translator {
	return Translator{engine: Engine, title: DisplayTitle}
}

// Engine returns the engine id.
func (t Translator) Engine() string {
	return t.engine
}

// TranslateValue parses a decoded value and translates it.
func (t Translator) TranslateValue(state StreamState, v any, prior *provider.ResumeToken) (StreamState, []provider.Event) {
	return t.Translate(state, ParseEvent(v), prior)
}

// Translate returns the state after ev and the events it produced, in order.
// It does not retain state or ev and never fails; events it does not
// understand produce nothing.
func (t Translator) Translate(state StreamState, ev Event, prior *provider.ResumeToken) (StreamState, []provider.Event) {
	switch ev.Kind {
	case KindRun:
		return t.translateRun(state, ev, prior)

	case KindMessagePart:
		if ev.Part == nil {
			return state, nil
		}
		if ev.Part.IsText() {
			state.Text += ev.Part.Content
		}
		if ev.Part.Trajectory != nil {
			var action provider.ActionEvent
			state, action = t.trajectoryAction(state, ev.Part.Trajectory)
			return state, []provider.Event{action}
		}
		return state, nil

	case KindMessage:
		if ev.Message.FromAgent() && ev.Message.Text != "" {
			state.Text = ev.Message.Text
		}
		return state, nil

	case KindError:
		return state, []provider.Event{t.completed(state, false, ev.ErrorMessage, prior)}
	}
	return state, nil
}

func (t Translator) translateRun(state StreamState, ev Event, prior *provider.ResumeToken) (StreamState, []provider.Event) {
	var events []provider.Event

	if ev.Run != nil {
		if state.SessionID == "" && ev.Run.SessionID != "" {
			state.SessionID = ev.Run.SessionID
		}
		if !state.StartedEmitted && state.SessionID != "" {
			state.StartedEmitted = true
			events = append(events, provider.StartedEvent{
				Engine: t.engine,
				Resume: provider.ResumeToken{Engine: t.engine, Value: state.SessionID},
				Title:  t.title,
			})
		}
	}

	switch ev.Type {
	case acpcontract.EventRunCompleted:
		events = append(events, t.completed(state, true, nil, prior))
	case acpcontract.EventRunFailed, acpcontract.EventRunCancelled:
		var msg *string
		if ev.Run != nil {
			msg = ev.Run.Error
		}
		events = append(events, t.completed(state, false, msg, prior))
	}
	return state, events
}

func (t Translator) completed(state StreamState, ok bool, errMsg *string, prior *provider.ResumeToken) provider.CompletedEvent {
	return provider.CompletedEvent{
		Engine: t.engine,
		OK:     ok,
		Answer: state.Text,
		Resume: state.ResumeToken(t.engine, prior),
		Error:  errMsg,
	}
}

func (t Translator) trajectoryAction(state StreamState, traj *Trajectory) (StreamState, provider.ActionEvent) {
	state.ActionSeq++

	action := provider.Action{
		ID: t.engine + ".trajectory." + strconv.Itoa(state.ActionSeq),
	}
	if traj.ToolName != "" {
		action.Kind = provider.ActionTool
		action.Title = traj.ToolName
		action.Detail = map[string]any{
			acpcontract.FieldToolName:   traj.ToolName,
			acpcontract.FieldToolInput:  traj.ToolInput,
			acpcontract.FieldToolOutput: traj.ToolOutput,
		}
	} else {
		action.Kind = provider.ActionNote
		action.Title = "trajectory"
		action.Detail = map[string]any{acpcontract.FieldMessage: traj.Message}
	}

	var msg *string
	if s, ok := traj.Message.(string); ok {
		msg = &s
	}

	return state, provider.ActionEvent{
		Engine:  t.engine,
		Action:  action,
		Phase:   provider.PhaseCompleted,
		OK:      true,
		Message: msg,
		Level:   provider.LevelInfo,
	}
}
