// Package droid runs the Factory droid CLI in ACP streaming mode and
// translates its output into provider events.
//
// # Installation
//
// The droid CLI must be installed separately:
//
//	curl -fsSL https://app.factory.ai/cli | sh
//
// # Pipeline
//
// A run is read in four steps, each usable on its own:
//
//   - FrameReader splits stdout into frames, either newline-delimited or
//     Content-Length framed (Config.LSPFraming, fixed per run).
//   - Decode turns a frame into a JSON value. Event-stream control lines
//     and "[DONE]" markers yield nothing; other garbage yields an
//     InvalidInput diagnostic.
//   - ParseEvent validates the "type" discriminant into the closed Event set.
//   - Translator.Translate maps an Event and the current StreamState to the
//     updated state and zero or more provider events.
//
// Translate is pure: the caller owns the StreamState and threads it through
// successive calls.
//
// # Basic Usage
//
//	runner, err := droid.NewRunner(droid.DefaultConfig(),
//	    droid.WithTimeout(10*time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	events, err := runner.Run(ctx, "Summarize README.md", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for evt := range events {
//	    if done, ok := evt.(provider.CompletedEvent); ok {
//	        fmt.Println(done.Answer)
//	    }
//	}
//
// The channel always ends with one provider.CompletedEvent. When droid
// exits without reporting one, Run synthesizes a failed completion carrying
// the text seen so far.
//
// # Resuming
//
// The session id reported on run events is the resume token. Pass it back
// to Run to continue the session. When the stream never reported one and
// Config.FallbackToText is set, Run scans unparsable output and stderr for
// a "droid resume <token>" hint using ResumeExtractor.
//
// # Configuration
//
// Settings load from TOML, YAML or JSON with LoadConfigFile, from a
// loosely-typed table with ConfigFromMap, or from DROID_* environment
// variables with FromEnv. ConfigSchema describes the accepted keys.
package droid
