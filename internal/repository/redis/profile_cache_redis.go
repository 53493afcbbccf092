package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
)

// RedisProfileCache implements ProfileCache using Redis.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.ProfileCache = (*RedisProfileCache)(nil)

// Helper to construct profile key
func makeProfileKey(authID string) string {
	return fmt.Sprintf("profile:%s", authID)
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{
		client: client,
		ttl:    ttl,
	}
}

// GetProfile returns the cached profile or ErrCacheMiss.
func (r *RedisProfileCache) GetProfile(ctx context.Context, authID string) (*models.UserProfile, error) {
	jsonData, err := r.client.Get(ctx, makeProfileKey(authID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal(jsonData, &profile); err != nil {
		// a corrupt entry is as good as a miss
		r.client.Del(ctx, makeProfileKey(authID))
		return nil, repository.ErrCacheMiss
	}
	return &profile, nil
}

// StoreProfile caches the profile for the configured TTL.
func (r *RedisProfileCache) StoreProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil || profile.Auth0ID == "" {
		return errors.New("invalid profile data: auth0 ID must be set")
	}
	if r.ttl <= 0 {
		return nil
	}

	jsonData, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := r.client.Set(ctx, makeProfileKey(profile.Auth0ID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

// InvalidateProfile removes the cached entry.
func (r *RedisProfileCache) InvalidateProfile(ctx context.Context, authID string) error {
	if err := r.client.Del(ctx, makeProfileKey(authID)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}
