package sqlite

import (
	"context"
	"fmt"

	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoCacheStore = (*RepoCacheRepo)(nil)

// RepoCacheRepo is the SQLite implementation of the RepoCacheStore port.
type RepoCacheRepo struct {
	db *DB
}

// NewRepoCacheRepo creates a new RepoCacheRepo.
func NewRepoCacheRepo(db *DB) *RepoCacheRepo {
	return &RepoCacheRepo{db: db}
}

// Upsert inserts or refreshes one cached repository row. last_synced_at is
// stamped on every call.
func (r *RepoCacheRepo) Upsert(ctx context.Context, cached model.CachedRepository) error {
	const query = `
		INSERT INTO repository_cache (user_id, repo_name, description, default_branch, url, last_synced_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, repo_name) DO UPDATE SET
			description    = excluded.description,
			default_branch = excluded.default_branch,
			url            = excluded.url,
			last_synced_at = CURRENT_TIMESTAMP,
			updated_at     = CURRENT_TIMESTAMP`

	_, err := r.db.Writer.ExecContext(ctx, query,
		cached.UserID, cached.RepoName, cached.Description, cached.DefaultBranch, cached.URL,
	)
	if err != nil {
		return fmt.Errorf("upsert repository cache %q: %w: %w", cached.RepoName, driven.ErrStorageUnavailable, err)
	}
	return nil
}

// ListByUser returns all cached rows for the user, ordered by repo name.
func (r *RepoCacheRepo) ListByUser(ctx context.Context, userID int64) ([]model.CachedRepository, error) {
	const query = `
		SELECT id, user_id, repo_name, description, default_branch, url, last_synced_at, created_at, updated_at
		FROM repository_cache
		WHERE user_id = ?
		ORDER BY repo_name`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list repository cache for user %d: %w: %w", userID, driven.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var cached []model.CachedRepository
	for rows.Next() {
		var (
			row                              model.CachedRepository
			lastSynced, createdAt, updatedAt string
		)
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.RepoName, &row.Description,
			&row.DefaultBranch, &row.URL, &lastSynced, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan repository cache row: %w", err)
		}

		if row.LastSyncedAt, err = parseTime(lastSynced); err != nil {
			return nil, fmt.Errorf("parse last_synced_at for %q: %w", row.RepoName, err)
		}
		if row.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %q: %w", row.RepoName, err)
		}
		if row.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for %q: %w", row.RepoName, err)
		}

		cached = append(cached, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repository cache: %w", err)
	}

	return cached, nil
}
