// Package redis opens the shared Redis connection used by the cache, quota
// and credential stores.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"askdata/internal/platform/config"
)

const (
	startupPings   = 4
	healthDeadline = time.Second
)

// Client embeds the go-redis client so stores take it as *redis.Client.
type Client struct {
	*redis.Client
}

// New connects to cfg.URL. The first ping is retried with exponential
// backoff so the server can start alongside Redis. It returns (nil, nil)
// when no URL is configured.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyPool(opts, cfg)

	client := redis.NewClient(opts)
	ping := func() error { return client.Ping(ctx).Err() }
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), startupPings), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

func applyPool(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	for dst, src := range map[*time.Duration]time.Duration{
		&opts.DialTimeout:  cfg.DialTimeout,
		&opts.ReadTimeout:  cfg.ReadTimeout,
		&opts.WriteTimeout: cfg.WriteTimeout,
	} {
		if src > 0 {
			*dst = src
		}
	}
}

// Health pings Redis under a short deadline for /api/health.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthDeadline)
	defer cancel()
	return c.Ping(ctx).Err()
}
