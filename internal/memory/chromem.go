package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemProvider backs the memory provider with chromem-go, a pure Go
// embedded vector database. Each user gets an isolated collection. A local
// record cache mirrors what chromem holds so List can enumerate without a
// vector query; deleting a record drops both the document and the cache entry.
type ChromemProvider struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	cache       map[string]map[string]Record
}

func NewChromemProvider() *ChromemProvider {
	return &ChromemProvider{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		cache:       make(map[string]map[string]Record),
	}
}

func collectionName(userID string) string {
	if userID == "" {
		return "global"
	}
	return "user_" + userID
}

func (p *ChromemProvider) collectionFor(userID string) (*chromem.Collection, error) {
	p.mu.RLock()
	col, ok := p.collections[userID]
	p.mu.RUnlock()
	if ok {
		return col, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if col, ok := p.collections[userID]; ok {
		return col, nil
	}
	col, err := p.db.CreateCollection(collectionName(userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	p.collections[userID] = col
	return col, nil
}

func (p *ChromemProvider) Add(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Importance = clampImportance(rec.Importance)

	col, err := p.collectionFor(rec.UserID)
	if err != nil {
		return Record{}, err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Text,
		Embedding: hashEmbedding(rec.Text),
		Metadata: map[string]string{
			"user_id":    rec.UserID,
			"importance": strconv.FormatFloat(rec.Importance, 'f', -1, 64),
			"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return Record{}, fmt.Errorf("add document: %w", err)
	}

	p.mu.Lock()
	if p.cache[rec.UserID] == nil {
		p.cache[rec.UserID] = make(map[string]Record)
	}
	p.cache[rec.UserID][rec.ID] = rec
	p.mu.Unlock()

	return rec, nil
}

func (p *ChromemProvider) Search(ctx context.Context, userID, query string, limit int) ([]Record, error) {
	col, err := p.collectionFor(userID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection size.
	if n := col.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, hashEmbedding(query), limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Record, 0, len(results))
	for _, res := range results {
		if rec, ok := p.cache[userID][res.ID]; ok {
			out = append(out, rec)
			continue
		}
		out = append(out, recordFromResult(userID, res))
	}
	return out, nil
}

func recordFromResult(userID string, res chromem.Result) Record {
	rec := Record{ID: res.ID, UserID: userID, Text: res.Content}
	if v, err := strconv.ParseFloat(res.Metadata["importance"], 64); err == nil {
		rec.Importance = v
	}
	if ts, err := time.Parse(time.RFC3339Nano, res.Metadata["created_at"]); err == nil {
		rec.CreatedAt = ts
	}
	return rec
}

func (p *ChromemProvider) List(_ context.Context, userID string, limit int) ([]Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Record, 0, len(p.cache[userID]))
	for _, rec := range p.cache[userID] {
		out = append(out, rec)
	}
	sortRecordsNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *ChromemProvider) Delete(ctx context.Context, userID, id string) error {
	p.mu.RLock()
	_, known := p.cache[userID][id]
	col := p.collections[userID]
	p.mu.RUnlock()
	if !known || col == nil {
		return ErrNotFound
	}

	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	p.mu.Lock()
	delete(p.cache[userID], id)
	p.mu.Unlock()
	return nil
}

func (p *ChromemProvider) DeleteAll(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.DeleteCollection(collectionName(userID)); err != nil {
		return fmt.Errorf("chromem delete collection: %w", err)
	}
	delete(p.collections, userID)
	delete(p.cache, userID)
	return nil
}

func (p *ChromemProvider) Name() string { return "chromem" }

func (p *ChromemProvider) Close() error { return nil }
