package driven

import (
	"context"

	"github.com/jmhart/gitdesk/internal/domain/model"
)

// RepoCacheStore defines the driven port for the repository metadata cache.
type RepoCacheStore interface {
	// Upsert inserts or refreshes one cached row keyed by (user, repo name)
	// and stamps last_synced_at.
	Upsert(ctx context.Context, cached model.CachedRepository) error

	// ListByUser returns all cached rows for the user, ordered by repo name.
	ListByUser(ctx context.Context, userID int64) ([]model.CachedRepository, error)
}
