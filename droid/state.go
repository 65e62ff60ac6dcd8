package droid

import "github.com/randalmurphal/acpkit/provider"

// StreamState is the per-run accumulator threaded through Translate.
// It is a value: Translate returns the updated copy and never retains it.
type StreamState struct {
	// SessionID is the first non-empty session id seen on a run event.
	SessionID string

	// Text is the best-known answer so far. message.part appends to it;
	// agent message.created/message.completed replace it.
	Text string

	// StartedEmitted flips to true once, when Started is produced.
	StartedEmitted bool

	// ActionSeq is the last trajectory sequence number handed out.
	ActionSeq int
}

// NewStreamState returns the zero state for a new run.
func NewStreamState() StreamState {
	return StreamState{}
}

// ResumeToken resolves the token reported on Started and Completed events:
// the state's session id if known, otherwise prior.
func (s StreamState) ResumeToken(engine string, prior *provider.ResumeToken) *provider.ResumeToken {
	if s.SessionID != "" {
		return &provider.ResumeToken{Engine: engine, Value: s.SessionID}
	}
	if prior == nil {
		return nil
	}
	tok := *prior
	return &tok
}
