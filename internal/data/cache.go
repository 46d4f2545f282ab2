package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheKeyFailover is the prefix for failover keys: failover:{name}
const CacheKeyFailover = "failover"

// ErrCacheNotFound is returned when a cache key does not exist
var ErrCacheNotFound = errors.New("cache: key not found")

// ErrCacheUnavailable is returned when no Redis client is configured
var ErrCacheUnavailable = errors.New("cache: redis client is nil")

// ErrCacheDecode is returned when a stored value cannot be decoded into dest
var ErrCacheDecode = errors.New("cache: failed to unmarshal value")

// CacheClient is a JSON key/value store. Implementations must be safe for concurrent use.
type CacheClient interface {
	// Get deserializes the value at key into dest. Returns ErrCacheNotFound if key doesn't exist.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value as JSON. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error
}

type redisCache struct {
	client *redis.Client
}

// NewCacheClient creates a new Redis-based cache client.
// If the Redis client is nil, every operation returns ErrCacheUnavailable.
func NewCacheClient(rdb *redis.Client) CacheClient {
	return &redisCache{
		client: rdb,
	}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("%w for key %s: %w", ErrCacheDecode, key, err)
	}

	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal value for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}

	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: failed to delete key %s: %w", key, err)
	}

	return nil
}

// BuildCacheKey joins prefix and parts with ':'.
//   - BuildCacheKey(CacheKeyFailover, "state") -> "failover:state"
func BuildCacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
