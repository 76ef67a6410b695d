package repository

import (
	"context"
	"testing"

	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", "password")
	fan := testutil.CreateUser(t, db, "fan", "password")
	msg := testutil.CreateMessage(t, db, author.ID, "like me")

	users, err := repo.LikingUsers(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, users, "a new message has no likes")

	liked, err := repo.Toggle(ctx, fan.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	ok, err := repo.Exists(ctx, fan.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	users, err = repo.LikingUsers(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "fan", users[0].Username)

	msgs, err := repo.LikedMessages(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].User)
	assert.Equal(t, "author", msgs[0].User.Username)

	ids, err := repo.LikedMessageIDs(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{msg.ID}, ids)

	n, err := repo.CountByUser(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	liked, err = repo.Toggle(ctx, fan.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	ok, _ = repo.Exists(ctx, fan.ID, msg.ID)
	assert.False(t, ok)
}
