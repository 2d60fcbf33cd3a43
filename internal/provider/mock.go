package provider

import (
	"context"
	"strings"
)

// MockAdapter produces deterministic local replies when no real provider is
// configured. The reply is streamed word by word so downstream streaming
// behavior is exercised for real.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamResponse(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error) {
	text := buildMockReply(req)

	var out strings.Builder
	words := strings.SplitAfter(text, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		default:
		}
		out.WriteString(w)
		if onDelta != nil {
			if err := onDelta(w); err != nil {
				return Response{}, err
			}
		}
	}
	return Response{Text: out.String()}, nil
}

func buildMockReply(req Request) string {
	var lastUser string
	for _, m := range req.Messages {
		if m.Role == "user" {
			lastUser = m.Content
		}
	}
	lastUser = strings.TrimSpace(lastUser)
	if lastUser == "" {
		return "I am listening."
	}
	return "You said: " + lastUser
}
