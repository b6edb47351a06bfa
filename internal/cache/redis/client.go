// Package redis backs the arb finder's shared state with go-redis/v9: the
// notified fingerprint, commission overrides, the dedup lock, the scan event
// bus and the API rate limiter.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this package writes.
const keyPrefix = "arbfinder:"

// ClientConfig holds connection parameters.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client owns the connection pool shared by the stores in this package.
type Client struct {
	rdb *redis.Client
}

// New connects and pings. A failed ping closes the pool and returns an error.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping checks the connection; used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the driver client.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}

func key(parts ...string) string {
	k := keyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}
