package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

// RedisRouteCache stores JSON-encoded routes in Redis with a TTL.
type RedisRouteCache struct {
	client *redis.Client
	// Bounds every Redis round trip so a slow cache never stalls routing.
	opTimeout time.Duration
}

func NewRedisRouteCache(client *redis.Client) *RedisRouteCache {
	return &RedisRouteCache{client: client, opTimeout: 2 * time.Second}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func (c *RedisRouteCache) Get(ctx context.Context, key string) (_ domain.RouteResult, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.redis.Get")(&err)

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RouteResult{}, false, nil
	}
	if err != nil {
		return domain.RouteResult{}, false, fmt.Errorf("redis route cache get %q: %w", key, err)
	}

	var route domain.RouteResult
	if err := json.Unmarshal(raw, &route); err != nil {
		return domain.RouteResult{}, false, fmt.Errorf("redis route cache decode %q: %w", key, err)
	}
	return route, true, nil
}

func (c *RedisRouteCache) Put(ctx context.Context, key string, route domain.RouteResult, ttl time.Duration) error {
	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("redis route cache encode %q: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis route cache set %q: %w", key, err)
	}
	return nil
}
