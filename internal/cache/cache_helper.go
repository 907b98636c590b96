package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache key not found")
)

// CacheHelper provides common caching operations over one key prefix. All
// operations degrade gracefully when no redis client is configured: writes
// become no-ops and reads report ErrCacheNotAvailable.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines TTL and key prefix for one data type.
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Leaderboard pages are expensive joins; a short TTL keeps them fresh
	// enough for a daily quiz.
	LeaderboardCacheConfig = CacheConfig{
		TTL:    2 * time.Minute,
		Prefix: "leaderboard:",
	}

	// One-time passcodes. TTL doubles as the OTP expiry.
	OTPCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "otp:",
	}

	// Today's served question payloads.
	SnapshotCacheConfig = CacheConfig{
		TTL:    12 * time.Hour,
		Prefix: "snapshot:",
	}
)

// GetCacheKey generates a cache key with prefix.
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	data, err := c.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	cacheKey := c.GetCacheKey(key)
	return c.client.Set(ctx, cacheKey, data, ttl).Err()
}

// Increment atomically bumps a counter key and returns the new value. The TTL
// is applied only when the increment creates the key, so repeated bumps never
// extend the counter's lifetime.
func (c *CacheHelper) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.client == nil {
		return 0, ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	count, err := c.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr error: %w", err)
	}
	if count == 1 && ttl > 0 {
		if err := c.client.Expire(ctx, cacheKey, ttl).Err(); err != nil {
			return count, fmt.Errorf("cache expire error: %w", err)
		}
	}
	return count, nil
}

// Delete removes keys from cache.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}
	return c.client.Del(ctx, cacheKeys...).Err()
}

// Exists checks if a key exists in cache.
func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	count, err := c.client.Exists(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return count > 0, nil
}

// CacheManager bundles the prefixed helpers used across the service.
type CacheManager struct {
	client      *redis.Client
	Leaderboard *CacheHelper
	OTP         *CacheHelper
	Snapshot    *CacheHelper
}

func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:      client,
		Leaderboard: NewCacheHelper(client, LeaderboardCacheConfig.Prefix),
		OTP:         NewCacheHelper(client, OTPCacheConfig.Prefix),
		Snapshot:    NewCacheHelper(client, SnapshotCacheConfig.Prefix),
	}
}

// HealthCheck pings redis when configured.
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return nil
	}
	return cm.client.Ping(ctx).Err()
}
