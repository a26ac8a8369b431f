package database

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// Cache key prefixes
	CacheKeyShareToken = "moxievault:share:"
	CacheKeyBlacklist  = "moxievault:blacklist:"

	// Cache TTLs
	CacheTTLShareToken = 2 * time.Minute
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// InvalidateShareTokenCache drops the cached resolution for a share
// token. Called after a vault commits a privacy change so a retired
// token stops resolving and a kept one stops serving stale state.
func InvalidateShareTokenCache(token string) {
	if Redis == nil || token == "" {
		return
	}
	CacheDelete(CacheKeyShareToken + token)
}

// BlacklistToken marks a JWT as revoked until it would have expired anyway
func BlacklistToken(token string, ttl time.Duration) error {
	if Redis == nil {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Set(ctx, CacheKeyBlacklist+token, "1", ttl).Err()
}

// IsTokenBlacklisted checks if a JWT has been revoked (user logged out)
func IsTokenBlacklisted(token string) bool {
	if Redis == nil {
		return false
	}
	ctx := context.Background()
	exists, err := Redis.Exists(ctx, CacheKeyBlacklist+token).Result()
	if err != nil {
		return false
	}
	return exists > 0
}
