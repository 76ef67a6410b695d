package repository

import (
	"context"
	"testing"

	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	u1 := testutil.CreateUser(t, db, "u1", "password")
	u2 := testutil.CreateUser(t, db, "u2", "password")
	u3 := testutil.CreateUser(t, db, "u3", "password")

	t.Run("Create is directed", func(t *testing.T) {
		created, err := repo.Create(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.True(t, created)

		ok, err := repo.Exists(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Exists(ctx, u2.ID, u1.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Create twice keeps one edge", func(t *testing.T) {
		created, err := repo.Create(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.False(t, created)

		followers, err := repo.Followers(ctx, u2.ID)
		require.NoError(t, err)
		assert.Len(t, followers, 1)
	})

	t.Run("Listings and counts", func(t *testing.T) {
		_, err := repo.Create(ctx, u3.ID, u2.ID)
		require.NoError(t, err)
		_, err = repo.Create(ctx, u1.ID, u3.ID)
		require.NoError(t, err)

		followers, err := repo.Followers(ctx, u2.ID)
		require.NoError(t, err)
		assert.Len(t, followers, 2)

		following, err := repo.Following(ctx, u1.ID)
		require.NoError(t, err)
		assert.Len(t, following, 2)

		ids, err := repo.FollowerIDs(ctx, u2.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{u1.ID, u3.ID}, ids)

		counts, err := repo.Counts(ctx, u1.ID)
		require.NoError(t, err)
		assert.Equal(t, FollowCounts{Followers: 0, Following: 2}, counts)
	})

	t.Run("Delete", func(t *testing.T) {
		removed, err := repo.Delete(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Delete(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		ok, _ := repo.Exists(ctx, u1.ID, u2.ID)
		assert.False(t, ok)
	})
}
