package droid

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/acpkit/acpcontract"
	"github.com/randalmurphal/acpkit/provider"
)

// RunRequest is the object written to droid's stdin to start a run.
type RunRequest struct {
	AgentName string         `json:"agent_name"`
	Input     []InputMessage `json:"input"`
	Mode      string         `json:"mode"`
	SessionID string         `json:"session_id,omitempty"`
}

// InputMessage is one turn of RunRequest.Input.
type InputMessage struct {
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// MessagePart is one content part of an InputMessage.
type MessagePart struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// NewRunRequest builds a streaming request for prompt. A non-nil resume
// continues that session.
func NewRunRequest(agentName, prompt string, resume *provider.ResumeToken) RunRequest {
	req := RunRequest{
		AgentName: agentName,
		Input: []InputMessage{{
			Role:  acpcontract.RoleUser,
			Parts: []MessagePart{{ContentType: acpcontract.ContentTypeText, Content: prompt}},
		}},
		Mode: acpcontract.ModeStream,
	}
	if resume != nil {
		req.SessionID = resume.Value
	}
	return req
}

// Encode returns the JSON body without a trailing newline. HTML characters
// in the prompt are not escaped.
func (r RunRequest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// StdinPayload returns the bytes written to droid's stdin for one run:
// the encoded request followed by a newline, or header-framed when
// lsp_framing is set.
func StdinPayload(cfg Config, prompt string, resume *provider.ResumeToken) ([]byte, error) {
	body, err := NewRunRequest(cfg.agentName(), prompt, resume).Encode()
	if err != nil {
		return nil, err
	}
	return EncodeFrame(cfg.FrameMode(), body), nil
}
