package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/internal/models"
)

const (
	// UserCacheKeyPrefix maps an access token to a cached user snapshot
	UserCacheKeyPrefix = "user_token:"
	// UserTokensKeyPrefix maps a user ID to the set of their cached token
	// keys, so invalidation can find every live entry
	UserTokensKeyPrefix = "user_tokens:"
	// UserCacheTTL is how long a snapshot may be served without hitting
	// the users table
	UserCacheTTL = 15 * time.Minute
)

// UserCache is a read-through cache of user snapshots keyed by access
// token. It is a side channel only: every Redis failure is logged and
// degrades to a miss or a no-op, never a request failure. The secondary
// user→tokens index is refreshed on every Put, so it always outlives the
// entries it points at and Invalidate removes all of them.
type UserCache struct{}

// Get returns the cached snapshot for a token, or (nil, false) on miss or
// cache error.
func (c *UserCache) Get(token string) (*models.UserSnapshot, bool) {
	ctx := context.Background()

	val, err := database.RedisClient.Get(ctx, UserCacheKeyPrefix+token).Result()
	if err != nil {
		// Miss and connection failure look the same to callers; the
		// users table is authoritative either way
		return nil, false
	}

	var snapshot models.UserSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		log.Printf("user cache: bad entry, dropping: %v", err)
		database.RedisClient.Del(ctx, UserCacheKeyPrefix+token)
		return nil, false
	}

	return &snapshot, true
}

// Put stores a snapshot under the token key and records the token in the
// user's index set.
func (c *UserCache) Put(token string, snapshot *models.UserSnapshot) {
	ctx := context.Background()

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("user cache: marshal failed: %v", err)
		return
	}

	if err := database.RedisClient.Set(ctx, UserCacheKeyPrefix+token, data, UserCacheTTL).Err(); err != nil {
		log.Printf("user cache: set failed: %v", err)
		return
	}

	indexKey := UserTokensKeyPrefix + snapshot.ID.String()
	if err := database.RedisClient.SAdd(ctx, indexKey, token).Err(); err != nil {
		log.Printf("user cache: index update failed: %v", err)
		return
	}
	// Index entries expire no sooner than the newest snapshot they track
	database.RedisClient.Expire(ctx, indexKey, UserCacheTTL)
}

// Invalidate removes every cached snapshot for the user. Called after
// avatar and password mutations so no stale snapshot outlives the change.
func (c *UserCache) Invalidate(userID uuid.UUID) {
	ctx := context.Background()
	indexKey := UserTokensKeyPrefix + userID.String()

	tokens, err := database.RedisClient.SMembers(ctx, indexKey).Result()
	if err != nil {
		log.Printf("user cache: invalidate lookup failed for %s: %v", userID, err)
		return
	}

	for _, token := range tokens {
		database.RedisClient.Del(ctx, UserCacheKeyPrefix+token)
	}
	database.RedisClient.Del(ctx, indexKey)
}

// Global user cache instance
var Cache = &UserCache{}
