package provider

// EngineRunner is the contract an engine exposes to a host run loop.
//
// S is the engine's per-run state. The host creates it with NewState before
// the subprocess starts, threads it through every Translate call, and drops
// it when the run ends; it is never shared between runs.
type EngineRunner[S any] interface {
	// Engine is the engine id, used to tag events and resume tokens.
	Engine() string

	// Command is the executable to launch.
	Command() string

	// BuildArgs returns the argument list for one run.
	BuildArgs() []string

	// NewState returns fresh per-run state.
	NewState() S

	// Translate maps one decoded stream value to zero or more events, in
	// order, returning the updated state. prior is the resume token the run
	// was started with, if any.
	Translate(state S, data any, prior *ResumeToken) (S, []Event)
}
