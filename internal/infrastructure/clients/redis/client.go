package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/healthbridge/HealthBridge/backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

// dialTimeout bounds the startup connectivity check; dispatch guards and
// the event bus cannot work without Redis, so failing fast at boot beats
// hanging.
const dialTimeout = 5 * time.Second

// Client wraps the Redis connection shared by the dispatch guard and the
// event bus.
type Client struct {
	client *redis.Client
}

// NewClient connects to Redis and verifies the connection
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
