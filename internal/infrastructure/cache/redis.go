package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/precosal/backend/internal/domain"
	"github.com/redis/rueidis"
)

// Compile-time check: RedisCache implements domain.CacheRepository.
var _ domain.CacheRepository = (*RedisCache)(nil)

// RedisConfig holds connection parameters for the Redis cache.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// RedisCache caches observations in Redis via rueidis, for deployments
// where multiple instances should share one cache.
type RedisCache struct {
	client rueidis.Client
}

// NewRedisCache connects to Redis.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	cmd := c.client.B().Ping().Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (c *RedisCache) Close() {
	c.client.Close()
}

// Get retrieves cached observations
func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.PriceObservation, error) {
	cmd := c.client.B().Get().Key(key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var observations []domain.PriceObservation
	if err := json.Unmarshal(data, &observations); err != nil {
		return nil, fmt.Errorf("decode cached observations: %w", err)
	}
	return observations, nil
}

// Set stores observations with TTL
func (c *RedisCache) Set(ctx context.Context, key string, observations []domain.PriceObservation, ttl time.Duration) error {
	data, err := json.Marshal(observations)
	if err != nil {
		return fmt.Errorf("encode observations: %w", err)
	}

	cmd := c.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	cmd := c.client.B().Del().Key(key).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
