// Package frame encodes the orchestrator's fragment stream into the client
// wire protocol: server-sent events for the streaming path, one aggregated
// body for the sync path.
package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Chunk is one client-facing stream event.
type Chunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

var errTerminalSent = errors.New("terminal frame already sent")

// SSEWriter frames chunks as server-sent events. Frames preserve write order
// and no content frame is ever emitted after the terminal frame.
type SSEWriter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	terminal bool
}

func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteContent emits one content frame.
func (s *SSEWriter) WriteContent(content string) error {
	if s.terminal {
		return errTerminalSent
	}
	return s.writeChunk(Chunk{Content: content})
}

// WriteDone emits the terminal frame followed by the end-of-stream sentinel.
func (s *SSEWriter) WriteDone() error {
	if s.terminal {
		return errTerminalSent
	}
	if err := s.writeChunk(Chunk{Done: true}); err != nil {
		return err
	}
	s.terminal = true
	return s.writeSentinel()
}

// WriteError emits a terminal error frame in place of the normal terminal
// frame. No content frames may follow.
func (s *SSEWriter) WriteError(message string) error {
	if s.terminal {
		return errTerminalSent
	}
	if err := s.writeChunk(Chunk{Content: "Error: " + message, Done: true}); err != nil {
		return err
	}
	s.terminal = true
	return s.writeSentinel()
}

func (s *SSEWriter) writeChunk(c Chunk) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *SSEWriter) writeSentinel() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("write sentinel: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Aggregator buffers fragments for the non-streaming path.
type Aggregator struct {
	b strings.Builder
}

func (a *Aggregator) Append(fragment string) error {
	a.b.WriteString(fragment)
	return nil
}

func (a *Aggregator) Text() string { return a.b.String() }
