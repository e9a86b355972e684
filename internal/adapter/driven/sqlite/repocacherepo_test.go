package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhart/gitdesk/internal/domain/model"
)

func TestRepoCacheRepo_UpsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoCacheRepo(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, model.CachedRepository{
		UserID:        1,
		RepoName:      "acme/widgets",
		Description:   "widget factory",
		DefaultBranch: "main",
		URL:           "https://github.com/acme/widgets",
	})
	require.NoError(t, err)

	cached, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "acme/widgets", cached[0].RepoName)
	assert.Equal(t, "widget factory", cached[0].Description)
	assert.Equal(t, "main", cached[0].DefaultBranch)
	assert.False(t, cached[0].LastSyncedAt.IsZero())
}

func TestRepoCacheRepo_UpsertRefreshesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoCacheRepo(db)
	ctx := context.Background()

	row := model.CachedRepository{UserID: 1, RepoName: "acme/widgets", Description: "before", DefaultBranch: "main"}
	require.NoError(t, repo.Upsert(ctx, row))

	row.Description = "after"
	row.DefaultBranch = "develop"
	require.NoError(t, repo.Upsert(ctx, row))

	cached, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "after", cached[0].Description)
	assert.Equal(t, "develop", cached[0].DefaultBranch)
}

func TestRepoCacheRepo_ListOrderedByName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoCacheRepo(db)
	ctx := context.Background()

	for _, name := range []string{"acme/zeta", "acme/alpha", "acme/mid"} {
		require.NoError(t, repo.Upsert(ctx, model.CachedRepository{UserID: 1, RepoName: name}))
	}

	cached, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cached, 3)
	assert.Equal(t, "acme/alpha", cached[0].RepoName)
	assert.Equal(t, "acme/mid", cached[1].RepoName)
	assert.Equal(t, "acme/zeta", cached[2].RepoName)
}

func TestRepoCacheRepo_ListEmptyForUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoCacheRepo(db)

	cached, err := repo.ListByUser(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, cached)
}
