package routing

import (
	"context"
	"fmt"
	"time"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/metrics"
	"dispatch-cost-service/internal/platform/obs"
	"dispatch-cost-service/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedProvider decorates a RouteProvider with a RouteCache. Concurrent
// lookups of the same leg share one upstream call, which is not cancelled
// when one of the waiting callers gives up. Cache failures are logged and
// otherwise ignored.
type CachedProvider struct {
	next    ports.RouteProvider
	cache   ports.RouteCache
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
}

func NewCachedProvider(next ports.RouteProvider, cache ports.RouteCache, ttl time.Duration, m *metrics.Metrics) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, metrics: m}
}

// CacheKey identifies a leg at roughly 0.1 m precision.
func CacheKey(origin, destination domain.Point, profile string) string {
	return fmt.Sprintf("route:%s:%.6f,%.6f:%.6f,%.6f", profile, origin.Lat, origin.Lon, destination.Lat, destination.Lon)
}

func (c *CachedProvider) GetRoute(ctx context.Context, origin, destination domain.Point, profile string) (domain.RouteResult, error) {
	key := CacheKey(origin, destination, profile)

	if c.cache != nil {
		route, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			obs.L(ctx).Warn("route cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			c.metrics.ObserveCache("hit")
			return route, nil
		}
		c.metrics.ObserveCache("miss")
	}

	// The shared upstream call outlives any single caller; each caller stops
	// waiting on its own context. The provider's attempt timeout bounds it.
	upstream := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		route, err := c.next.GetRoute(upstream, origin, destination, profile)
		if err != nil {
			return domain.RouteResult{}, err
		}
		if c.cache != nil {
			if err := c.cache.Put(upstream, key, route, c.ttl); err != nil {
				obs.L(upstream).Warn("route cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return route, nil
	})

	select {
	case <-ctx.Done():
		return domain.RouteResult{}, fmt.Errorf("get route: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.RouteResult{}, res.Err
		}
		return res.Val.(domain.RouteResult), nil
	}
}

// Ping forwards to the wrapped provider when it supports health checks.
func (c *CachedProvider) Ping(ctx context.Context) error {
	if p, ok := c.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
