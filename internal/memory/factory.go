package memory

import (
	"context"
	"fmt"
	"strings"
)

// NewProvider selects the memory provider backend. Mode "auto" prefers
// postgres when a database URL is configured and otherwise falls back to the
// embedded chromem vector store.
func NewProvider(ctx context.Context, mode, databaseURL string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		if strings.TrimSpace(databaseURL) != "" {
			return NewPostgresProvider(ctx, databaseURL)
		}
		return NewChromemProvider(), nil
	case "postgres":
		if strings.TrimSpace(databaseURL) == "" {
			return nil, fmt.Errorf("MEMORY_PROVIDER=postgres requires DATABASE_URL")
		}
		return NewPostgresProvider(ctx, databaseURL)
	case "chromem":
		return NewChromemProvider(), nil
	case "inmemory":
		return NewInMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported memory provider %q", mode)
	}
}
