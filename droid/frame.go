package droid

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/randalmurphal/acpkit/acpcontract"
)

// DefaultMaxFrameSize bounds a single line or header-framed body.
const DefaultMaxFrameSize = 1024 * 1024

// FrameMode selects how a byte stream is split into frames. It is fixed when
// the reader is created and never re-detected per frame.
type FrameMode int

const (
	// FrameModeLine splits the stream on newlines.
	FrameModeLine FrameMode = iota

	// FrameModeHeader reads "Content-Length: N" header blocks followed by
	// exactly N body bytes.
	FrameModeHeader
)

// String returns the mode name.
func (m FrameMode) String() string {
	switch m {
	case FrameModeLine:
		return "line"
	case FrameModeHeader:
		return "header"
	}
	return fmt.Sprintf("FrameMode(%d)", int(m))
}

// FrameModeFor maps the lsp_framing setting to a FrameMode.
func FrameModeFor(lspFraming bool) FrameMode {
	if lspFraming {
		return FrameModeHeader
	}
	return FrameModeLine
}

// Frame is one message payload read from the stream.
type Frame struct {
	Payload []byte

	// Framed is true when Payload is a Content-Length body rather than a line.
	Framed bool
}

// FrameReader splits a byte stream into frames.
// It is not safe for concurrent use and holds at most one frame in flight.
type FrameReader struct {
	r       *bufio.Reader
	mode    FrameMode
	maxSize int
	logger  *slog.Logger
}

// FrameReaderOption configures a FrameReader.
type FrameReaderOption func(*FrameReader)

// WithMaxFrameSize sets the largest line or body accepted. Larger frames are
// skipped.
func WithMaxFrameSize(n int) FrameReaderOption {
	return func(fr *FrameReader) {
		if n > 0 {
			fr.maxSize = n
		}
	}
}

// WithFrameLogger sets the logger used for skipped frames.
func WithFrameLogger(l *slog.Logger) FrameReaderOption {
	return func(fr *FrameReader) {
		if l != nil {
			fr.logger = l
		}
	}
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader, mode FrameMode, opts ...FrameReaderOption) *FrameReader {
	fr := &FrameReader{
		r:       bufio.NewReader(r),
		mode:    mode,
		maxSize: DefaultMaxFrameSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(fr)
	}
	return fr
}

// Mode returns the reader's framing mode.
func (fr *FrameReader) Mode() FrameMode {
	return fr.mode
}

// ReadFrame returns the next frame.
//
// It returns io.EOF when the stream ends, including when it ends in the
// middle of a line, header block or body; partial frames are never
// returned. Any other error comes from the underlying reader.
//
// In header mode a header block whose Content-Length is malformed
// or negative is skipped, and reading resumes at the next line. The header
// that opens the block is the one used; later Content-Length lines in the
// same block are ignored. Lines outside a
// header block are returned as unframed payloads; blank lines are skipped.
func (fr *FrameReader) ReadFrame() (Frame, error) {
	for {
		line, oversized, err := fr.readLine()
		if err != nil {
			return Frame{}, endOfStream(err)
		}
		if oversized {
			fr.logger.Debug("skipping oversized line", slog.Int("max_frame_size", fr.maxSize))
			continue
		}

		if fr.mode == FrameModeHeader {
			trimmed := bytes.TrimSpace(line)
			if isContentLength(trimmed) {
				frame, ok, err := fr.readHeaderFrame(trimmed)
				if err != nil {
					return Frame{}, endOfStream(err)
				}
				if !ok {
					continue
				}
				return frame, nil
			}
			if len(trimmed) == 0 {
				continue
			}
		}

		return Frame{Payload: line}, nil
	}
}

// readHeaderFrame consumes the rest of a header block that began with first,
// then the body. ok is false when the frame was skipped.
func (fr *FrameReader) readHeaderFrame(first []byte) (Frame, bool, error) {
	length := parseContentLength(first)
	for {
		line, oversized, err := fr.readLine()
		if err != nil {
			return Frame{}, false, err
		}
		if oversized {
			continue
		}
		if len(bytes.TrimSpace(line)) == 0 {
			break
		}
	}

	if length < 0 {
		fr.logger.Debug("skipping frame with invalid Content-Length",
			slog.String("header", string(first)))
		return Frame{}, false, nil
	}

	if length > fr.maxSize {
		fr.logger.Debug("skipping oversized frame",
			slog.Int("content_length", length),
			slog.Int("max_frame_size", fr.maxSize))
		if _, err := io.CopyN(io.Discard, fr.r, int64(length)); err != nil {
			return Frame{}, false, err
		}
		return Frame{}, false, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return Frame{}, false, err
	}
	return Frame{Payload: body, Framed: true}, true, nil
}

// readLine reads up to and including '\n' and returns the line without its
// line ending. A line longer than maxSize is consumed and reported as
// oversized with a nil slice.
func (fr *FrameReader) readLine() ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := fr.r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > fr.maxSize+2 {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if oversized {
			return nil, true, nil
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		return line, false, nil
	}
}

func isContentLength(line []byte) bool {
	prefix := acpcontract.HeaderContentLength
	return len(line) >= len(prefix) && strings.EqualFold(string(line[:len(prefix)]), prefix)
}

// parseContentLength returns the declared length, or -1 if it is not a
// non-negative integer.
func parseContentLength(line []byte) int {
	value := strings.TrimSpace(string(line[len(acpcontract.HeaderContentLength):]))
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// endOfStream maps truncation and closed-pipe errors to io.EOF.
func endOfStream(err error) error {
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, fs.ErrClosed):
		return io.EOF
	}
	return fmt.Errorf("read frame: %w", err)
}

// EncodeFrame frames body for writing in the given mode.
func EncodeFrame(mode FrameMode, body []byte) []byte {
	if mode == FrameModeHeader {
		return EncodeHeaderFrame(body)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, body...)
	return append(out, '\n')
}

// EncodeHeaderFrame prefixes body with a Content-Length header block. No
// trailing newline is added.
func EncodeHeaderFrame(body []byte) []byte {
	header := fmt.Sprintf("%s %d%s", acpcontract.HeaderContentLength, len(body), acpcontract.HeaderTerminator)
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	return append(out, body...)
}

// WriteFrame writes one framed body to w.
func WriteFrame(w io.Writer, mode FrameMode, body []byte) error {
	_, err := w.Write(EncodeFrame(mode, body))
	return err
}
