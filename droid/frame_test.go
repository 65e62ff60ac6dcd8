package droid_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/acpkit/droid"
)

func readAll(t *testing.T, fr *droid.FrameReader) []droid.Frame {
	t.Helper()
	var frames []droid.Frame
	for {
		f, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func payloads(frames []droid.Frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = string(f.Payload)
	}
	return out
}

func TestFrameReader_Lines(t *testing.T) {
	input := "{\"a\":1}\n{\"b\":2}\r\n\nlast\n"
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeLine)

	frames := readAll(t, fr)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, "", "last"}, payloads(frames))
	for _, f := range frames {
		assert.False(t, f.Framed)
	}
}

func TestFrameReader_LinesDropsUnterminatedTail(t *testing.T) {
	fr := droid.NewFrameReader(strings.NewReader("one\ntwo"), droid.FrameModeLine)
	assert.Equal(t, []string{"one"}, payloads(readAll(t, fr)))
}

func TestFrameReader_LineModeDoesNotInterpretHeaders(t *testing.T) {
	input := "Content-Length: 2\r\n\r\n{}"
	fr := droid.NewFrameReader(strings.NewReader(input+"\n"), droid.FrameModeLine)
	assert.Equal(t, []string{"Content-Length: 2", "", "{}"}, payloads(readAll(t, fr)))
}

func TestFrameReader_HeaderRoundTrip(t *testing.T) {
	bodies := [][]byte{
		[]byte(`{"type":"run.created","run":{"session_id":"s1"}}`),
		[]byte("{\"content\":\"line one\\nline two\"}"),
		[]byte("{\"x\":\"multi\nline body\"}"),
		[]byte(`{"emoji":"héllo ✓"}`),
	}

	var buf bytes.Buffer
	for _, b := range bodies {
		require.NoError(t, droid.WriteFrame(&buf, droid.FrameModeHeader, b))
	}

	fr := droid.NewFrameReader(&buf, droid.FrameModeHeader)
	frames := readAll(t, fr)
	require.Len(t, frames, len(bodies))
	for i, f := range frames {
		assert.True(t, f.Framed)
		assert.Equal(t, bodies[i], f.Payload)
	}
}

func TestFrameReader_LineRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, droid.WriteFrame(&buf, droid.FrameModeLine, []byte(`{"a":1}`)))
	assert.Equal(t, "{\"a\":1}\n", buf.String())

	fr := droid.NewFrameReader(&buf, droid.FrameModeLine)
	assert.Equal(t, []string{`{"a":1}`}, payloads(readAll(t, fr)))
}

func TestEncodeHeaderFrame(t *testing.T) {
	got := droid.EncodeHeaderFrame([]byte(`{"a":1}`))
	assert.Equal(t, "Content-Length: 7\r\n\r\n{\"a\":1}", string(got))
}

func TestFrameReader_HeaderCaseInsensitive(t *testing.T) {
	input := "content-length: 2\r\nContent-Type: application/json\r\n\r\n{}"
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeHeader)
	assert.Equal(t, []string{"{}"}, payloads(readAll(t, fr)))
}

func TestFrameReader_FirstContentLengthWins(t *testing.T) {
	input := "Content-Length: 2\r\nContent-Length: 5\r\n\r\n{}" + "Content-Length: 3\r\n\r\n[1]"
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeHeader)
	assert.Equal(t, []string{"{}", "[1]"}, payloads(readAll(t, fr)))
}

func TestFrameReader_InvalidLengthSkipsFrame(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"not a number", "Content-Length: abc"},
		{"negative", "Content-Length: -4"},
		{"empty", "Content-Length:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.header + "\r\n\r\n" + "Content-Length: 2\r\n\r\n{}"
			fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeHeader)
			assert.Equal(t, []string{"{}"}, payloads(readAll(t, fr)))
		})
	}
}

func TestFrameReader_TruncatedBody(t *testing.T) {
	input := "Content-Length: 2\r\n\r\n{}" + "Content-Length: 100\r\n\r\n{\"partial\""
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeHeader)
	assert.Equal(t, []string{"{}"}, payloads(readAll(t, fr)))
}

func TestFrameReader_TruncatedHeaders(t *testing.T) {
	fr := droid.NewFrameReader(strings.NewReader("Content-Length: 2\r\n"), droid.FrameModeHeader)
	assert.Empty(t, readAll(t, fr))
}

func TestFrameReader_HeaderModePassesStrayLines(t *testing.T) {
	input := "warning: something\n\n" + "Content-Length: 2\r\n\r\n{}" + "\n"
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeHeader)

	frames := readAll(t, fr)
	require.Len(t, frames, 2)
	assert.False(t, frames[0].Framed)
	assert.Equal(t, "warning: something", string(frames[0].Payload))
	assert.True(t, frames[1].Framed)
	assert.Equal(t, "{}", string(frames[1].Payload))
}

func TestFrameReader_OversizedLineSkipped(t *testing.T) {
	input := strings.Repeat("x", 64) + "\nok\n"
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeLine, droid.WithMaxFrameSize(16))
	assert.Equal(t, []string{"ok"}, payloads(readAll(t, fr)))
}

func TestFrameReader_OversizedBodySkipped(t *testing.T) {
	big := strings.Repeat("y", 64)
	input := "Content-Length: 64\r\n\r\n" + big + "Content-Length: 2\r\n\r\n{}"
	fr := droid.NewFrameReader(strings.NewReader(input), droid.FrameModeHeader, droid.WithMaxFrameSize(32))
	assert.Equal(t, []string{"{}"}, payloads(readAll(t, fr)))
}

func TestFrameReader_ClosedPipeEndsQuietly(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("one\n"))
		_ = pw.CloseWithError(io.ErrClosedPipe)
	}()
	fr := droid.NewFrameReader(pr, droid.FrameModeLine)
	assert.Equal(t, []string{"one"}, payloads(readAll(t, fr)))
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestFrameReader_ReaderErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	fr := droid.NewFrameReader(failingReader{err: boom}, droid.FrameModeLine)
	_, err := fr.ReadFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestFrameModeFor(t *testing.T) {
	assert.Equal(t, droid.FrameModeHeader, droid.FrameModeFor(true))
	assert.Equal(t, droid.FrameModeLine, droid.FrameModeFor(false))
	assert.Equal(t, "header", droid.FrameModeHeader.String())
	assert.Equal(t, "line", droid.FrameModeLine.String())
}
