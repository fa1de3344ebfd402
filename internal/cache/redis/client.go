// Package redis backs the control loop's cross-process concerns with
// go-redis/v9: the per-strategy owner lease (acquire, refresh, release) and
// the action event stream. Redis is optional; without it a strategy runs
// unlocked and records actions only to its state file.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig mirrors the [redis] config section.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client is the shared connection behind OwnerLock and ActionStream.
type Client struct {
	rdb *redis.Client
}

// New connects and pings. Wiring treats a failed ping as fatal.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the go-redis client to the lock scripts and stream
// writer, and to tests that inspect keys directly.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
