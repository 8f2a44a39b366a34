package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/providers"
	redisclient "github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/redis"
)

// dispatchKeyPrefix namespaces guard keys away from other Redis usage
const dispatchKeyPrefix = "dispatch:decision:"

// RedisDispatchGuard implements the DispatchGuard interface using Redis
// SETNX. The key TTL bounds how long a crashed dispatch can block a
// retry; the database unique index remains the durable backstop.
type RedisDispatchGuard struct {
	client *redisclient.Client
}

// NewRedisDispatchGuard creates a new Redis dispatch guard
func NewRedisDispatchGuard(client *redisclient.Client) providers.DispatchGuard {
	return &RedisDispatchGuard{
		client: client,
	}
}

// Acquire claims the dispatch slot for a routing decision
func (g *RedisDispatchGuard) Acquire(ctx context.Context, routingDecisionID string, ttl time.Duration) (bool, error) {
	ok, err := g.client.Client().SetNX(ctx, dispatchKeyPrefix+routingDecisionID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire dispatch slot: %w", err)
	}
	return ok, nil
}

// Release frees a claimed slot after a failed dispatch
func (g *RedisDispatchGuard) Release(ctx context.Context, routingDecisionID string) error {
	if err := g.client.Client().Del(ctx, dispatchKeyPrefix+routingDecisionID).Err(); err != nil {
		return fmt.Errorf("failed to release dispatch slot: %w", err)
	}
	return nil
}
