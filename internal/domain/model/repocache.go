package model

import "time"

// CachedRepository is a locally stored snapshot of repository metadata,
// refreshed opportunistically whenever the live repository list is fetched.
// There is no TTL; LastSyncedAt tells the reader how stale the row is.
type CachedRepository struct {
	ID            int64
	UserID        int64
	RepoName      string // "owner/name"
	Description   string
	DefaultBranch string
	URL           string
	LastSyncedAt  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
