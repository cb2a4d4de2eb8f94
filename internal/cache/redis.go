// Package cache stores served predictions in Redis so repeated requests
// for the same inputs skip the ensemble.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache is a JSON prediction cache
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings Redis
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Health pings Redis
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PredictionKey derives the cache key of a prediction request. The engine
// generation is part of the key so a retrain or refit invalidates every
// earlier entry.
func PredictionKey(sport models.Sport, generation uint64, request any) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	sum := sha256.Sum256(body)
	return fmt.Sprintf("prediction:%s:g%d:%s", sport, generation, hex.EncodeToString(sum[:])), nil
}

// Get decodes a cached value into dest and reports whether it was found
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	start := time.Now()
	data, err := c.client.Get(ctx, key).Bytes()
	metrics.RecordCacheOperation("get", time.Since(start).Seconds())

	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return false, nil
	}
	if err != nil {
		metrics.RecordError("cache", "get")
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// a stale shape is treated as a miss
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		metrics.RecordCacheMiss()
		return false, nil
	}

	metrics.RecordCacheHit()
	return true, nil
}

// Set stores value as JSON for ttl
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	start := time.Now()
	err = c.client.Set(ctx, key, data, ttl).Err()
	metrics.RecordCacheOperation("set", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordError("cache", "set")
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
