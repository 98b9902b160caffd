package auth

import (
	"context"

	"dealsplit-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// UserSessionsPrefix keys the set of live session ids per user.
const UserSessionsPrefix = "user_sessions:"

// DestroyUserSessions deletes every session of userID and its tracking set.
// Returns the number of sessions removed.
func DestroyUserSessions(ctx context.Context, rdb *redis.Client, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	key := UserSessionsPrefix + userID
	sessionIDs, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sid := range sessionIDs {
		keys = append(keys, middleware.SessionRedisPrefix+sid)
	}
	keys = append(keys, key)
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(sessionIDs), nil
}
