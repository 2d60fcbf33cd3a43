// Package memory adapts the external long-term semantic memory provider and
// wraps it in a gateway that decides, per call site, whether provider failure
// is fatal or merely degrades context quality.
package memory

import (
	"context"
	"errors"
	"sort"
	"time"
)

var ErrNotFound = errors.New("memory record not found")

// Record is one long-term fact about a user. Records are immutable once
// written; the ID is assigned by the provider on a successful Add.
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"memory"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Provider is the narrow interface to the external semantic memory store.
// Search returns records ranked most relevant first.
type Provider interface {
	Add(ctx context.Context, rec Record) (Record, error)
	Search(ctx context.Context, userID, query string, limit int) ([]Record, error)
	List(ctx context.Context, userID string, limit int) ([]Record, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
	Name() string
	Close() error
}

func sortRecordsNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
