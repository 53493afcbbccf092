package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
)

func newTestProfileCache(t *testing.T, ttl time.Duration) (*RedisProfileCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	require.NoError(t, client.Ping(context.Background()).Err())

	return NewRedisProfileCache(client, ttl), mr
}

func TestRedisProfileCache_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestProfileCache(t, time.Hour)

	profile := &models.UserProfile{ID: "id-1", Auth0ID: "auth0|1", Email: "a@example.com", Role: models.RoleLecturer}
	require.NoError(t, cache.StoreProfile(ctx, profile))

	raw, err := mr.Get(makeProfileKey("auth0|1"))
	require.NoError(t, err)
	var stored models.UserProfile
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "id-1", stored.ID)
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(makeProfileKey("auth0|1")).Seconds(), 5)

	got, err := cache.GetProfile(ctx, "auth0|1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLecturer, got.Role)
}

func TestRedisProfileCache_Miss(t *testing.T) {
	cache, _ := newTestProfileCache(t, time.Hour)
	_, err := cache.GetProfile(context.Background(), "auth0|none")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestRedisProfileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestProfileCache(t, time.Minute)
	require.NoError(t, cache.StoreProfile(ctx, &models.UserProfile{Auth0ID: "auth0|1"}))

	mr.FastForward(2 * time.Minute)

	_, err := cache.GetProfile(ctx, "auth0|1")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestRedisProfileCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestProfileCache(t, time.Hour)
	require.NoError(t, cache.StoreProfile(ctx, &models.UserProfile{Auth0ID: "auth0|1"}))

	require.NoError(t, cache.InvalidateProfile(ctx, "auth0|1"))
	assert.False(t, mr.Exists(makeProfileKey("auth0|1")))

	// invalidating twice is fine
	require.NoError(t, cache.InvalidateProfile(ctx, "auth0|1"))
}

func TestRedisProfileCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestProfileCache(t, time.Hour)
	require.NoError(t, mr.Set(makeProfileKey("auth0|1"), "{not json"))

	_, err := cache.GetProfile(ctx, "auth0|1")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
	assert.False(t, mr.Exists(makeProfileKey("auth0|1")))
}

func TestRedisProfileCache_InvalidData(t *testing.T) {
	cache, _ := newTestProfileCache(t, time.Hour)
	err := cache.StoreProfile(context.Background(), &models.UserProfile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile data")
}

func TestRedisProfileCache_DisabledTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestProfileCache(t, 0)
	require.NoError(t, cache.StoreProfile(ctx, &models.UserProfile{Auth0ID: "auth0|1"}))
	assert.False(t, mr.Exists(makeProfileKey("auth0|1")))
}
