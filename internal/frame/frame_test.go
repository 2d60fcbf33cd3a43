package frame

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeFrames(t *testing.T, body string) ([]Chunk, bool) {
	t.Helper()
	var chunks []Chunk
	sawSentinel := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			t.Fatalf("unexpected line %q", line)
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			sawSentinel = true
			continue
		}
		if sawSentinel {
			t.Fatalf("frame after [DONE]: %q", payload)
		}
		var c Chunk
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			t.Fatalf("bad frame %q: %v", payload, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, sawSentinel
}

func TestSSEWriterPreservesOrderAndTerminates(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter() error = %v", err)
	}

	for _, frag := range []string{"He", "llo", " world"} {
		if err := w.WriteContent(frag); err != nil {
			t.Fatalf("WriteContent(%q) error = %v", frag, err)
		}
	}
	if err := w.WriteDone(); err != nil {
		t.Fatalf("WriteDone() error = %v", err)
	}

	chunks, sawSentinel := decodeFrames(t, rec.Body.String())
	if !sawSentinel {
		t.Fatalf("missing [DONE] sentinel")
	}
	want := []Chunk{{Content: "He"}, {Content: "llo"}, {Content: " world"}, {Done: true}}
	if len(chunks) != len(want) {
		t.Fatalf("frames = %+v, want %+v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("frames[%d] = %+v, want %+v", i, chunks[i], want[i])
		}
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}
}

func TestSSEWriterRefusesContentAfterTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	w, _ := NewSSEWriter(rec)
	if err := w.WriteDone(); err != nil {
		t.Fatalf("WriteDone() error = %v", err)
	}
	if err := w.WriteContent("late"); err == nil {
		t.Fatalf("WriteContent() after terminal should fail")
	}
	if err := w.WriteDone(); err == nil {
		t.Fatalf("second WriteDone() should fail")
	}
	if strings.Contains(rec.Body.String(), "late") {
		t.Fatalf("late content leaked into the stream: %s", rec.Body.String())
	}
}

func TestSSEWriterErrorFrameIsTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	w, _ := NewSSEWriter(rec)
	if err := w.WriteContent("partial"); err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}
	if err := w.WriteError("provider timed out"); err != nil {
		t.Fatalf("WriteError() error = %v", err)
	}

	chunks, sawSentinel := decodeFrames(t, rec.Body.String())
	if !sawSentinel {
		t.Fatalf("missing [DONE] sentinel after error frame")
	}
	last := chunks[len(chunks)-1]
	if !last.Done || !strings.Contains(last.Content, "provider timed out") {
		t.Fatalf("last frame = %+v, want terminal error frame", last)
	}
	if err := w.WriteContent("more"); err == nil {
		t.Fatalf("WriteContent() after error frame should fail")
	}
}

// noFlushWriter implements http.ResponseWriter without http.Flusher.
type noFlushWriter struct{ h http.Header }

func (w noFlushWriter) Header() http.Header         { return w.h }
func (noFlushWriter) Write(b []byte) (int, error)   { return len(b), nil }
func (noFlushWriter) WriteHeader(int)               {}

func TestNewSSEWriterRequiresFlusher(t *testing.T) {
	_, err := NewSSEWriter(noFlushWriter{h: http.Header{}})
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("NewSSEWriter() error = %v, want ErrStreamingUnsupported", err)
	}
}

func TestAggregatorConcatenates(t *testing.T) {
	var a Aggregator
	for _, frag := range []string{"one ", "two ", "three"} {
		if err := a.Append(frag); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if got := a.Text(); got != "one two three" {
		t.Fatalf("Text() = %q", got)
	}
}
