// Package sse writes the chat stream's server-sent event frames.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported is returned when the response cannot be flushed.
var ErrStreamingUnsupported = errors.New("streaming not supported")

type tokenFrame struct {
	Token string `json:"token"`
}

type doneFrame struct {
	Done bool `json:"done"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Writer emits `data: <json>\n\n` frames and flushes after each one.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewWriter wraps w. Headers are not sent until Start or the first frame.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// Start commits the streaming headers. Intermediary buffering and caching
// are disabled so tokens reach the caller as they are produced.
func (s *Writer) Start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// Token sends one generated text fragment.
func (s *Writer) Token(text string) error {
	return s.write(tokenFrame{Token: text})
}

// Done sends the terminal completion frame.
func (s *Writer) Done() error {
	return s.write(doneFrame{Done: true})
}

// Error sends the terminal error frame.
func (s *Writer) Error(msg string) error {
	return s.write(errorFrame{Error: msg})
}

func (s *Writer) write(frame any) error {
	s.Start()
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
