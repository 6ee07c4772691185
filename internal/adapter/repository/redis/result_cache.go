// Package redis keeps terminal transaction results in Redis so replays skip the database.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

const defaultPrefix = "ledger:result:"

// ResultCache implements usecase.ResultCache using Redis.
type ResultCache struct {
	client redis.Cmdable
	prefix string
}

var _ usecase.ResultCache = (*ResultCache)(nil)

// NewResultCache creates a new ResultCache. An empty prefix selects the default.
func NewResultCache(client redis.Cmdable, prefix string) *ResultCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ResultCache{client: client, prefix: prefix}
}

// Get returns the cached result for key, or nil on a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.TransactionResult, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("result cache get %s: %w", key, err)
	}

	var res domain.TransactionResult
	if err := json.Unmarshal(data, &res); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		_ = c.client.Del(ctx, c.prefix+key).Err()
		return nil, nil
	}
	res.Replayed = false
	return &res, nil
}

// Set stores result under key, replacing any previous value.
func (c *ResultCache) Set(ctx context.Context, key string, result *domain.TransactionResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("result cache set %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent stores result under key unless key already holds a value.
func (c *ResultCache) SetIfAbsent(ctx context.Context, key string, result *domain.TransactionResult, ttl time.Duration) (bool, error) {
	if result == nil {
		return false, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("encode result %s: %w", key, err)
	}
	ok, err := c.client.SetNX(ctx, c.prefix+key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("result cache setnx %s: %w", key, err)
	}
	return ok, nil
}

// Delete removes key.
func (c *ResultCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("result cache delete %s: %w", key, err)
	}
	return nil
}
