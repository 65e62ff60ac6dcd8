package droid

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/randalmurphal/acpkit/acpcontract"
)

// errInvalidJSON is the reason attached to payloads that are not JSON.
var errInvalidJSON = errors.New("invalid JSON")

// InvalidInput is a diagnostic for a payload that is neither JSON nor a
// recognized control line. It is reported to the host, never returned as an
// error.
type InvalidInput struct {
	// Line is the payload as received, decoded as UTF-8 with replacement.
	Line string
	Err  error
}

// DecodeResult is the outcome of decoding one frame. At most one field is
// set; when neither is, the frame carried no event.
type DecodeResult struct {
	Value   any
	Invalid *InvalidInput
}

// Empty reports whether the frame produced neither a value nor a diagnostic.
func (r DecodeResult) Empty() bool {
	return r.Value == nil && r.Invalid == nil
}

// Decode turns a frame into a loosely-typed JSON value.
//
// Header-framed payloads are exact JSON bodies. Line payloads go through the
// event-stream policy in DecodeLine.
func Decode(f Frame) DecodeResult {
	if f.Framed {
		return decodeBody(f.Payload)
	}
	return DecodeLine(f.Payload)
}

// DecodeLine applies the line policy:
//
//  1. trim whitespace; an empty line yields nothing
//  2. strip a "data:" prefix and trim again; empty data yields nothing
//  3. "[DONE]" and "done" mark the end of the stream and yield nothing
//  4. otherwise parse JSON
//  5. on parse failure, control lines (":", "event:", "id:", "retry:")
//     yield nothing and anything else yields an InvalidInput
func DecodeLine(line []byte) DecodeResult {
	raw := toText(line)
	text := strings.TrimSpace(raw)
	if text == "" {
		return DecodeResult{}
	}
	if strings.HasPrefix(text, acpcontract.PrefixData) {
		text = strings.TrimSpace(text[len(acpcontract.PrefixData):])
	}
	if text == "" || acpcontract.IsSentinel(text) {
		return DecodeResult{}
	}

	if v, ok := parseJSON([]byte(text)); ok {
		return DecodeResult{Value: v}
	}
	if acpcontract.IsControlLine(raw) {
		return DecodeResult{}
	}
	return DecodeResult{Invalid: &InvalidInput{Line: raw, Err: errInvalidJSON}}
}

func decodeBody(body []byte) DecodeResult {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return DecodeResult{}
	}
	if v, ok := parseJSON(trimmed); ok {
		return DecodeResult{Value: v}
	}
	return DecodeResult{Invalid: &InvalidInput{Line: toText(body), Err: errInvalidJSON}}
}

// parseJSON decodes exactly one JSON value, keeping numbers as json.Number so
// tool inputs are forwarded without float rounding.
func parseJSON(data []byte) (any, bool) {
	if !json.Valid(data) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// A literal null decodes to nil: valid, but no event.
	return v, true
}

func toText(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
