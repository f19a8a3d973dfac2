package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/internal/models"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr
}

func testSnapshot() *models.UserSnapshot {
	return &models.UserSnapshot{
		ID:          uuid.New(),
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Role:        models.RoleUser,
		IsVerified:  true,
	}
}

func TestUserCache_PutGet(t *testing.T) {
	setupRedis(t)
	cache := &UserCache{}
	snapshot := testSnapshot()

	cache.Put("token-1", snapshot)

	got, ok := cache.Get("token-1")
	require.True(t, ok)
	require.Equal(t, snapshot, got)
}

func TestUserCache_MissOnUnknownToken(t *testing.T) {
	setupRedis(t)
	cache := &UserCache{}

	got, ok := cache.Get("never-stored")
	require.False(t, ok)
	require.Nil(t, got)
}

func TestUserCache_EntryExpires(t *testing.T) {
	mr := setupRedis(t)
	cache := &UserCache{}

	cache.Put("token-1", testSnapshot())
	mr.FastForward(UserCacheTTL + time.Second)

	_, ok := cache.Get("token-1")
	require.False(t, ok)
}

func TestUserCache_InvalidateRemovesAllUserTokens(t *testing.T) {
	mr := setupRedis(t)
	cache := &UserCache{}

	snapshot := testSnapshot()
	other := testSnapshot()

	cache.Put("token-1", snapshot)
	cache.Put("token-2", snapshot)
	cache.Put("token-other", other)

	cache.Invalidate(snapshot.ID)

	_, ok := cache.Get("token-1")
	require.False(t, ok)
	_, ok = cache.Get("token-2")
	require.False(t, ok)
	require.False(t, mr.Exists(UserTokensKeyPrefix+snapshot.ID.String()))

	// Other users' entries survive
	got, ok := cache.Get("token-other")
	require.True(t, ok)
	require.Equal(t, other.ID, got.ID)
}

func TestUserCache_DropsCorruptEntry(t *testing.T) {
	mr := setupRedis(t)
	cache := &UserCache{}

	require.NoError(t, mr.Set(UserCacheKeyPrefix+"token-1", "not json"))

	_, ok := cache.Get("token-1")
	require.False(t, ok)
	require.False(t, mr.Exists(UserCacheKeyPrefix+"token-1"))
}

func TestUserCache_DegradesWhenRedisDown(t *testing.T) {
	mr := setupRedis(t)
	cache := &UserCache{}
	mr.Close()

	// All operations degrade to miss / no-op, never panic or fail
	cache.Put("token-1", testSnapshot())
	_, ok := cache.Get("token-1")
	require.False(t, ok)
	cache.Invalidate(uuid.New())
}
