package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/coach/pkg/domain"
)

// Event types written by JSONHandler.
const (
	EventReply  = "reply"
	EventSystem = "system"
)

// Event is one JSON line written by JSONHandler.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Changed   bool   `json:"stage_changed,omitempty"`
	Text      string `json:"text"`
}

// Input is the structured form a host may send instead of a raw line.
type Input struct {
	Text string `json:"text"`
}

// JSONHandler implements IOHandler for JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, r Reply) error {
	return h.Encoder.Encode(Event{
		Type:      EventReply,
		SessionID: r.SessionID,
		Stage:     stageName(r.Stage),
		Changed:   r.Changed,
		Text:      r.Text,
	})
}

// Input accepts {"text": "..."}, a JSON string or a raw line.
// Reads are not interruptible; a host closes the stream to stop the runner.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	line = strings.TrimSpace(line)

	var in Input
	if err := json.Unmarshal([]byte(line), &in); err == nil {
		return SanitizeInput(in.Text)
	}
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return SanitizeInput(s)
	}
	return SanitizeInput(line)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Event{Type: EventSystem, Text: msg})
}

func stageName(s domain.Stage) string {
	if !s.IsValid() {
		return ""
	}
	return s.String()
}
