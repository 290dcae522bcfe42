package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/util"
)

const keyPrefix = "listings:"

// ListingCache keeps rendered student query results in redis. Keys hash the
// normalised query so equivalent searches share an entry.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ListingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingCache{client: client, ttl: ttl, logger: logger}
}

// Key builds the cache key for a student query.
func Key(parts ...string) string {
	return keyPrefix + util.HashQuery(parts...)
}

// Get returns the cached payload. ok is false on a miss.
func (c *ListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

// Set stores a payload with the configured TTL. Failures are logged only.
func (c *ListingCache) Set(ctx context.Context, key string, data []byte) {
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes every cached student query.
func (c *ListingCache) Invalidate(ctx context.Context) error {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %d cache keys: %w", len(keys), err)
	}
	c.logger.Debug("listing cache invalidated", zap.Int("keys", len(keys)))
	return nil
}
