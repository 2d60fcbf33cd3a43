package provider

import (
	"context"
	"fmt"
)

// FallbackAdapter attempts a primary adapter first and falls back on
// transient errors. Context cancellation and deadline errors are never
// retried: the caller gave up or the turn timed out, and the fallback would
// be racing a dead turn. Non-retryable provider statuses stay final too,
// since the fallback would receive the same bad request. A primary failure
// after fragments have already gone out is also final: re-streaming through
// the same handler would duplicate content the caller has seen.
type FallbackAdapter struct {
	primary  Adapter
	fallback Adapter
}

func NewFallbackAdapter(primary, fallback Adapter) *FallbackAdapter {
	return &FallbackAdapter{primary: primary, fallback: fallback}
}

func (a *FallbackAdapter) StreamResponse(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error) {
	delivered := false
	wrapped := func(delta string) error {
		delivered = true
		if onDelta == nil {
			return nil
		}
		return onDelta(delta)
	}

	resp, err := a.primary.StreamResponse(ctx, req, wrapped)
	if err == nil {
		return resp, nil
	}
	if delivered || !retryableAttemptError(err) {
		return Response{}, err
	}
	if a.fallback == nil {
		return Response{}, err
	}

	fallbackResp, fallbackErr := a.fallback.StreamResponse(ctx, req, wrapped)
	if fallbackErr != nil {
		return Response{}, fmt.Errorf("primary adapter error: %w; fallback adapter error: %v", err, fallbackErr)
	}
	return fallbackResp, nil
}
