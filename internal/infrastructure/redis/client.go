package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const checkTimeout = 3 * time.Second

// Client is the connection shared by the result cache and the readiness probe.
type Client struct {
	*redis.Client
	logger zerolog.Logger
}

// Open parses redisURL, connects and confirms the server answers before returning.
func Open(ctx context.Context, redisURL string, logger zerolog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{
		Client: redis.NewClient(opts),
		logger: logger.With().Str("component", "redis").Str("addr", opts.Addr).Int("db", opts.DB).Logger(),
	}
	if err := c.Check(ctx); err != nil {
		_ = c.Client.Close()
		return nil, err
	}

	c.logger.Info().Msg("connected to redis")
	return c, nil
}

// Check pings the server within a bounded time.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the pool.
func (c *Client) Close() error {
	err := c.Client.Close()
	c.logger.Debug().Err(err).Msg("redis connection closed")
	return err
}
