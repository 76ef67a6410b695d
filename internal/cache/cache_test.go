package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedProfile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestNewClient(t *testing.T) {
	assert.Nil(t, NewClient(""))
	assert.Nil(t, NewClient("redis://%zz"))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := NewClient("redis://" + mr.Addr() + "/0")
	require.NotNil(t, rdb)
	assert.NoError(t, rdb.Ping(context.Background()).Err())
	_ = rdb.Close()
}

func TestJSONHelpers_NoClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	found, err := GetJSON(ctx, "missing", &cachedProfile{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(ctx, "k", cachedProfile{ID: 1}, time.Minute))
}

func TestAside(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedProfile) func() error {
		return func() error {
			calls++
			*dest = cachedProfile{ID: 9, Name: "nine"}
			return nil
		}
	}

	var first cachedProfile
	require.NoError(t, Aside(ctx, UserKey(9), &first, UserTTL, fetch(&first)))
	assert.Equal(t, "nine", first.Name)
	assert.True(t, mr.Exists("user:9"))

	var second cachedProfile
	require.NoError(t, Aside(ctx, UserKey(9), &second, UserTTL, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second read is served from Redis")

	InvalidateUser(ctx, 9)
	assert.False(t, mr.Exists("user:9"))

	boom := errors.New("db down")
	var third cachedProfile
	err := Aside(ctx, UserKey(10), &third, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:10"))
}

func TestInvalidateFollowCounts(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, FollowCountsKey(1), 1, time.Minute))
	require.NoError(t, SetJSON(ctx, FollowCountsKey(2), 2, time.Minute))
	InvalidateFollowCounts(ctx, 1, 2)

	assert.False(t, mr.Exists(FollowCountsKey(1)))
	assert.False(t, mr.Exists(FollowCountsKey(2)))
}

func TestSessionStorage(t *testing.T) {
	assert.Nil(t, NewSessionStorage(nil))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	store := NewSessionStorage(rdb)

	val, err := store.Get("absent")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, store.Set("abc", []byte("payload"), time.Minute))
	require.NoError(t, store.Set("def", []byte("other"), 0))
	assert.True(t, mr.Exists("session:abc"))

	val, err = store.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)

	mr.FastForward(2 * time.Minute)
	val, err = store.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, val, "expired sessions disappear")

	require.NoError(t, store.Delete("def"))
	assert.False(t, mr.Exists("session:def"))

	require.NoError(t, store.Set("x", []byte("1"), 0))
	require.NoError(t, store.Set("y", []byte("2"), 0))
	require.NoError(t, rdb.Set(context.Background(), "unrelated", "keep", 0).Err())
	require.NoError(t, store.Reset())
	assert.False(t, mr.Exists("session:x"))
	assert.False(t, mr.Exists("session:y"))
	assert.True(t, mr.Exists("unrelated"))
	assert.NoError(t, store.Close())
}
