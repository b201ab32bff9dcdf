package ports

import (
	"context"
	"dispatch-cost-service/internal/domain"
	"time"
)

// Contract for retrieving a single-leg route between two points.
// Implementations return distance in km, duration in minutes and (lat, lon) points.
type RouteProvider interface {
	GetRoute(ctx context.Context, origin, destination domain.Point, profile string) (domain.RouteResult, error)
}

// Storage for previously computed routes. A miss is (zero, false, nil).
type RouteCache interface {
	Get(ctx context.Context, key string) (domain.RouteResult, bool, error)
	Put(ctx context.Context, key string, route domain.RouteResult, ttl time.Duration) error
}
