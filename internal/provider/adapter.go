// Package provider adapts the external language-model service. The service is
// consumed through one narrow operation: send an assembled context, receive an
// incremental stream of text fragments terminated by an end marker or error.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is one role-tagged entry of the provider request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized completion request.
type Request struct {
	UserID   string    `json:"user_id"`
	Messages []Message `json:"messages"`
}

// Response is the final aggregated text after streaming completes.
type Response struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments in arrival order. Returning
// an error stops the stream.
type DeltaHandler func(delta string) error

// Adapter bridges the pipeline to a language-model backend.
type Adapter interface {
	StreamResponse(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode        string
	HTTPURL     string
	FallbackURL string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			primary := NewHTTPAdapter(cfg.HTTPURL)
			if strings.TrimSpace(cfg.FallbackURL) != "" {
				return NewFallbackAdapter(primary, NewHTTPAdapter(cfg.FallbackURL)), nil
			}
			return primary, nil
		}
		return NewMockAdapter(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("provider HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported provider mode %q", cfg.Mode)
	}
}
