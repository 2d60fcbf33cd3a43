package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryProvider is a simple in-process provider for local/dev use and
// tests. Search ranks by naive word overlap, then importance.
type InMemoryProvider struct {
	mu      sync.RWMutex
	records map[string][]Record
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{records: make(map[string][]Record)}
}

func (p *InMemoryProvider) Add(_ context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Importance = clampImportance(rec.Importance)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.UserID] = append(p.records[rec.UserID], rec)
	return rec, nil
}

func (p *InMemoryProvider) Search(_ context.Context, userID, query string, limit int) ([]Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	queryWords := strings.Fields(strings.ToLower(query))
	type scored struct {
		rec   Record
		score float64
	}
	var matches []scored
	for _, rec := range p.records[userID] {
		text := strings.ToLower(rec.Text)
		overlap := 0
		for _, w := range queryWords {
			if strings.Contains(text, w) {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		matches = append(matches, scored{rec: rec, score: float64(overlap) + rec.Importance})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Record, len(matches))
	for i, m := range matches {
		out[i] = m.rec
	}
	return out, nil
}

func (p *InMemoryProvider) List(_ context.Context, userID string, limit int) ([]Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	recs := p.records[userID]
	out := make([]Record, len(recs))
	copy(out, recs)
	// Newest first, matching the hosted providers.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *InMemoryProvider) Delete(_ context.Context, userID, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	recs := p.records[userID]
	for i, rec := range recs {
		if rec.ID == id {
			p.records[userID] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (p *InMemoryProvider) DeleteAll(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, userID)
	return nil
}

func (p *InMemoryProvider) Name() string { return "inmemory" }

func (p *InMemoryProvider) Close() error { return nil }
