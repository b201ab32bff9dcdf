package routing

import (
	"context"
	"sync"
	"sync/atomic"

	"dispatch-cost-service/internal/domain"
)

type StubRoute struct {
	From, To domain.Point
	Route    domain.RouteResult
	Err      error
}

// StubProvider serves canned routes keyed by (from, to). Unknown pairs get a
// straight two-point route over the haversine distance at 60 km/h unless
// Strict is set. Used by tests and by ROUTING_MODE=stub.
type StubProvider struct {
	Strict bool

	mu     sync.RWMutex
	routes map[string]StubRoute
	calls  atomic.Int64
}

func NewStubProvider(routes ...StubRoute) *StubProvider {
	s := &StubProvider{routes: make(map[string]StubRoute, len(routes))}
	for _, r := range routes {
		s.routes[stubKey(r.From, r.To)] = r
	}
	return s
}

func stubKey(from, to domain.Point) string { return from.String() + "|" + to.String() }

// Set replaces the canned answer for a pair.
func (s *StubProvider) Set(r StubRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[stubKey(r.From, r.To)] = r
}

func (s *StubProvider) Calls() int { return int(s.calls.Load()) }

func (s *StubProvider) GetRoute(ctx context.Context, origin, destination domain.Point, profile string) (domain.RouteResult, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return domain.RouteResult{}, err
	}

	s.mu.RLock()
	r, ok := s.routes[stubKey(origin, destination)]
	s.mu.RUnlock()

	if ok {
		if r.Err != nil {
			return domain.RouteResult{}, r.Err
		}
		return r.Route, nil
	}
	if s.Strict {
		return domain.RouteResult{}, domain.Errorf(domain.KindExternalService, "stub route",
			"no route for %s -> %s", origin, destination)
	}

	km := domain.DistanceHaversine(origin, destination) / 1000
	return domain.RouteResult{
		DistanceKm:      km,
		DurationMinutes: km,
		Points:          []domain.Point{origin, destination},
	}, nil
}

func (s *StubProvider) Ping(context.Context) error { return nil }
