package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestMockAdapterStreamsInOrder(t *testing.T) {
	a := NewMockAdapter()
	var deltas []string
	resp, err := a.StreamResponse(context.Background(), Request{
		UserID:   "u1",
		Messages: []Message{{Role: "user", Content: "hello there"}},
	}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "You said: hello there" {
		t.Fatalf("Text = %q", resp.Text)
	}
	if strings.Join(deltas, "") != resp.Text {
		t.Fatalf("deltas %v do not reassemble into %q", deltas, resp.Text)
	}
	if len(deltas) < 2 {
		t.Fatalf("expected multiple fragments, got %v", deltas)
	}
}

func TestMockAdapterHonorsCancellation(t *testing.T) {
	a := NewMockAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.StreamResponse(ctx, Request{Messages: []Message{{Role: "user", Content: "hi"}}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamResponse() error = %v, want context.Canceled", err)
	}
}

func TestHTTPAdapterConsumesSSE(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"He", "llo", " world"} {
			fmt.Fprintf(w, "data: {\"content\": %q}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	var deltas []string
	resp, err := a.StreamResponse(context.Background(), Request{UserID: "u1"}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	want := []string{"He", "llo", " world"}
	if len(deltas) != len(want) {
		t.Fatalf("deltas = %v, want %v", deltas, want)
	}
	for i := range want {
		if deltas[i] != want[i] {
			t.Fatalf("deltas[%d] = %q, want %q", i, deltas[i], want[i])
		}
	}
	if resp.Text != "Hello world" {
		t.Fatalf("Text = %q, want %q", resp.Text, "Hello world")
	}
}

func TestHTTPAdapterAcceptsPlainJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text": "single reply"}`)
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	var deltas []string
	resp, err := a.StreamResponse(context.Background(), Request{}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "single reply" || len(deltas) != 1 {
		t.Fatalf("resp = %+v deltas = %v", resp, deltas)
	}
}

func TestHTTPAdapterRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text": "recovered"}`)
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	resp, err := a.StreamResponse(context.Background(), Request{}, nil)
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "recovered" {
		t.Fatalf("Text = %q", resp.Text)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("server saw %d requests, want 3", got)
	}
}

func TestHTTPAdapterExhaustsRetriesOnPersistentStatus(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	_, err := a.StreamResponse(context.Background(), Request{}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("StreamResponse() error = %v, want 503 StatusError", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("server saw %d requests, want 3", got)
	}
}

func TestHTTPAdapterDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "malformed", http.StatusBadRequest)
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	_, err := a.StreamResponse(context.Background(), Request{}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("StreamResponse() error = %v, want 400 StatusError", err)
	}
	if se.Retryable() {
		t.Fatal("400 must not be retryable")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server saw %d requests, want 1", got)
	}
}

type erroringAdapter struct{ err error }

func (a erroringAdapter) StreamResponse(context.Context, Request, DeltaHandler) (Response, error) {
	return Response{}, a.err
}

func TestFallbackAdapterUsesSecondaryOnError(t *testing.T) {
	fb := NewFallbackAdapter(erroringAdapter{err: errors.New("primary down")}, NewMockAdapter())
	resp, err := fb.StreamResponse(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "ping"}},
	}, nil)
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "You said: ping" {
		t.Fatalf("Text = %q", resp.Text)
	}
}

// partialAdapter streams some fragments and then fails mid-stream.
type partialAdapter struct {
	fragments []string
	err       error
}

func (a partialAdapter) StreamResponse(_ context.Context, _ Request, onDelta DeltaHandler) (Response, error) {
	for _, f := range a.fragments {
		if onDelta != nil {
			if err := onDelta(f); err != nil {
				return Response{}, err
			}
		}
	}
	return Response{}, a.err
}

func TestFallbackAdapterDoesNotReplayAfterPartialStream(t *testing.T) {
	primary := partialAdapter{
		fragments: []string{"He"},
		err:       errors.New("connection reset mid-stream"),
	}
	fb := NewFallbackAdapter(primary, NewMockAdapter())

	var deltas []string
	_, err := fb.StreamResponse(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "llo world"}},
	}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err == nil {
		t.Fatal("mid-stream primary failure must surface, not be papered over by the fallback")
	}
	if len(deltas) != 1 || deltas[0] != "He" {
		t.Fatalf("deltas = %v, want only the primary's %q", deltas, "He")
	}
}

func TestFallbackAdapterSkipsSecondaryOnNonRetryableStatus(t *testing.T) {
	primaryErr := &StatusError{Code: http.StatusBadRequest, Body: "malformed"}
	fb := NewFallbackAdapter(erroringAdapter{err: primaryErr}, NewMockAdapter())
	_, err := fb.StreamResponse(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "ping"}},
	}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("StreamResponse() error = %v, want the primary 400 untouched", err)
	}
}

func TestFallbackAdapterDoesNotRetryCancellation(t *testing.T) {
	fb := NewFallbackAdapter(erroringAdapter{err: context.Canceled}, NewMockAdapter())
	_, err := fb.StreamResponse(context.Background(), Request{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamResponse() error = %v, want context.Canceled", err)
	}
}

func TestNewAdapterModes(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "http"}); err == nil {
		t.Fatalf("http mode without URL should fail")
	}
	if _, err := NewAdapter(Config{Mode: "bogus"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewAdapter(auto) error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("auto without URL should yield the mock adapter, got %T", a)
	}
}
