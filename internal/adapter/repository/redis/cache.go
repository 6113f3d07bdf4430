package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/rewardledger/internal/domain"
)

// Cache is a prefixed string cache on Redis.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a new Cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "cache:",
	}
}

// Get retrieves a value by key. A missing key yields redis.Nil.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.prefix+key).Result()
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

const rewardsConfigKey = "rewards_config"

// RewardsConfigCache implements usecase.RewardsConfigCache. The resolved
// configuration is shared by every API instance through one JSON key.
type RewardsConfigCache struct {
	cache *Cache
}

// NewRewardsConfigCache creates a new RewardsConfigCache.
func NewRewardsConfigCache(client *redis.Client) *RewardsConfigCache {
	return &RewardsConfigCache{cache: NewCache(client)}
}

// Get returns the cached configuration, ok == false on a miss.
func (c *RewardsConfigCache) Get(ctx context.Context) (*domain.RewardsConfig, bool, error) {
	raw, err := c.cache.Get(ctx, rewardsConfigKey)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cfg domain.RewardsConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		// A value written by an incompatible build counts as a miss.
		return nil, false, nil
	}

	return &cfg, true, nil
}

// Set caches cfg for ttl.
func (c *RewardsConfigCache) Set(ctx context.Context, cfg *domain.RewardsConfig, ttl time.Duration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode rewards config: %w", err)
	}

	return c.cache.Set(ctx, rewardsConfigKey, string(raw), ttl)
}

// Invalidate drops the cached configuration.
func (c *RewardsConfigCache) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, rewardsConfigKey)
}
