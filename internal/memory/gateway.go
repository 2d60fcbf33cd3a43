package memory

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RecallResult carries the facts recalled for a turn. Degraded is set when the
// provider failed or timed out and the caller should proceed with what it has.
type RecallResult struct {
	Facts    []Record
	Degraded bool
}

// Gateway fronts the memory provider with the failure policy the chat flow
// needs: recall fails soft so a provider outage never blocks a turn, while
// explicit user-initiated operations surface provider errors unchanged.
type Gateway struct {
	provider      Provider
	recallTimeout time.Duration
}

func NewGateway(provider Provider, recallTimeout time.Duration) *Gateway {
	if recallTimeout <= 0 {
		recallTimeout = 2 * time.Second
	}
	return &Gateway{provider: provider, recallTimeout: recallTimeout}
}

// Recall searches long-term memory for facts relevant to the query. It is
// bounded by the gateway's own timeout regardless of the caller's deadline.
func (g *Gateway) Recall(ctx context.Context, userID, query string, limit int) RecallResult {
	if limit <= 0 {
		return RecallResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, g.recallTimeout)
	defer cancel()

	facts, err := g.provider.Search(ctx, userID, query, limit)
	if err != nil {
		log.Printf("memory recall degraded for user %s: %v", userID, err)
		return RecallResult{Degraded: true}
	}
	return RecallResult{Facts: facts}
}

// Remember writes a fact and waits for the provider's acknowledgment. Callers
// on the turn hot path invoke it from a detached goroutine.
func (g *Gateway) Remember(ctx context.Context, userID, text string, importance float64) (Record, error) {
	rec, err := g.provider.Add(ctx, Record{
		UserID:     userID,
		Text:       text,
		Importance: clampImportance(importance),
	})
	if err != nil {
		return Record{}, fmt.Errorf("remember: %w", err)
	}
	return rec, nil
}

// Search is the explicit, user-initiated search surface; errors are surfaced.
func (g *Gateway) Search(ctx context.Context, userID, query string, limit int) ([]Record, error) {
	return g.provider.Search(ctx, userID, query, limit)
}

func (g *Gateway) List(ctx context.Context, userID string, limit int) ([]Record, error) {
	return g.provider.List(ctx, userID, limit)
}

func (g *Gateway) Delete(ctx context.Context, userID, id string) error {
	return g.provider.Delete(ctx, userID, id)
}

func (g *Gateway) Clear(ctx context.Context, userID string) error {
	return g.provider.DeleteAll(ctx, userID)
}

func (g *Gateway) ProviderName() string { return g.provider.Name() }

func (g *Gateway) Close() error { return g.provider.Close() }
