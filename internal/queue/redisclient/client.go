// Package redisclient holds the one redis connection the API shares between
// the per-student submission lock and /readyz.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/submitlock"
	"github.com/redis/go-redis/v9"
)

// readiness must answer quickly even when redis is stalled
const pingTimeout = 500 * time.Millisecond

type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// ConfigFrom picks the redis keys out of the process config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{rdb: rdb}
}

// Locker returns the submission lock backed by this connection.
func (c *Client) Locker() *submitlock.RedisLocker {
	return submitlock.NewRedis(c.rdb)
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.rdb.Options().Addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
