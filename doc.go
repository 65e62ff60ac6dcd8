// Package acpkit translates agent CLI event streams into a small set of
// normalized lifecycle events.
//
// Each subpackage can be used independently:
//
//   - provider: normalized events, resume tokens, the Client interface and
//     the backend registry
//   - droid: frame reader, event decoder, translator and subprocess runner
//     for "droid exec --output-format acp"
//   - acpcontract: wire constants and CLI version checks for droid
//   - providers: blank-imports every engine so provider.New can find it
//
// # Quick Start
//
// Translate a captured stream:
//
//	frames := droid.NewFrameReader(r, droid.FrameModeLine)
//	tr := droid.NewTranslator()
//	state := droid.NewStreamState()
//	for {
//	    frame, err := frames.ReadFrame()
//	    if err != nil {
//	        break
//	    }
//	    res := droid.Decode(frame)
//	    if res.Value == nil {
//	        continue
//	    }
//	    var events []provider.Event
//	    state, events = tr.TranslateValue(state, res.Value, nil)
//	    // handle events
//	}
//
// Run droid through the registry:
//
//	import _ "github.com/randalmurphal/acpkit/providers"
//
//	client, err := provider.New("droid", provider.Config{WorkDir: "."})
//	resp, err := client.Complete(ctx, provider.Request{
//	    Messages: []provider.Message{provider.NewTextMessage(provider.RoleUser, "List the TODOs")},
//	})
package acpkit
