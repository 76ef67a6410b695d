package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	FollowCountsPrefix   = "user:%d:follow_counts"
	TokenBlacklistPrefix = "blacklist:%s"
)

const (
	UserTTL         = 5 * time.Minute
	FollowCountsTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func FollowCountsKey(userID uint) string {
	return fmt.Sprintf(FollowCountsPrefix, userID)
}

// BlacklistKey names the marker for a revoked token ID.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateUser drops the cached profile and follow counters for userID.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID), FollowCountsKey(userID))
}

// InvalidateFollowCounts drops the cached counters for both sides of an edge.
func InvalidateFollowCounts(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, FollowCountsKey(id))
	}
	Invalidate(ctx, keys...)
}
