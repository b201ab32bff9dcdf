package routing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch-cost-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.RouteResult
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.RouteResult{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (domain.RouteResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return domain.RouteResult{}, false, errors.New("cache down")
	}
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key string, r domain.RouteResult, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = r
	return nil
}

func TestCachedProviderServesRepeatLookupsFromCache(t *testing.T) {
	stub := NewStubProvider(StubRoute{
		From:  bogota,
		To:    medellin,
		Route: domain.RouteResult{DistanceKm: 415, DurationMinutes: 400, Points: []domain.Point{bogota, medellin}},
	})
	cache := newMemoryCache()
	p := NewCachedProvider(stub, cache, time.Hour, nil)

	for i := 0; i < 3; i++ {
		r, err := p.GetRoute(context.Background(), bogota, medellin, "car")
		require.NoError(t, err)
		assert.Equal(t, 415.0, r.DistanceKm)
	}
	assert.Equal(t, 1, stub.Calls())

	_, err := p.GetRoute(context.Background(), bogota, medellin, "truck")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Calls(), "profile is part of the key")
}

func TestCachedProviderIgnoresCacheFailures(t *testing.T) {
	stub := NewStubProvider()
	cache := newMemoryCache()
	cache.failGet = true
	p := NewCachedProvider(stub, cache, time.Hour, nil)

	_, err := p.GetRoute(context.Background(), bogota, medellin, "car")
	require.NoError(t, err)
	_, err = p.GetRoute(context.Background(), bogota, medellin, "car")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Calls())
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	stub := NewStubProvider(StubRoute{From: bogota, To: medellin, Err: errors.New("boom")})
	p := NewCachedProvider(stub, newMemoryCache(), time.Hour, nil)

	_, err := p.GetRoute(context.Background(), bogota, medellin, "car")
	require.Error(t, err)
	_, err = p.GetRoute(context.Background(), bogota, medellin, "car")
	require.Error(t, err)
	assert.Equal(t, 2, stub.Calls())
}

// gatedProvider holds every lookup until release is closed and records the
// context error it sees at that point.
type gatedProvider struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	calls  int
	ctxErr error
}

func (g *gatedProvider) GetRoute(ctx context.Context, origin, destination domain.Point, _ string) (domain.RouteResult, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.started)
	}

	<-g.release

	g.mu.Lock()
	g.ctxErr = ctx.Err()
	g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.RouteResult{}, err
	}
	return domain.RouteResult{DistanceKm: 415, Points: []domain.Point{origin, destination}}, nil
}

func TestCachedProviderCancelledCallerDoesNotFailOthers(t *testing.T) {
	gate := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	p := NewCachedProvider(gate, newMemoryCache(), time.Hour, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := p.GetRoute(ctxA, bogota, medellin, "car")
		errA <- err
	}()
	<-gate.started

	type result struct {
		route domain.RouteResult
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		r, err := p.GetRoute(context.Background(), bogota, medellin, "car")
		resB <- result{r, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	time.Sleep(20 * time.Millisecond)
	close(gate.release)

	select {
	case got := <-resB:
		require.NoError(t, got.err)
		assert.Equal(t, 415.0, got.route.DistanceKm)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never completed")
	}

	gate.mu.Lock()
	defer gate.mu.Unlock()
	assert.NoError(t, gate.ctxErr)
}

func TestStubProviderStrict(t *testing.T) {
	stub := NewStubProvider()
	stub.Strict = true

	_, err := stub.GetRoute(context.Background(), bogota, medellin, "car")
	require.Error(t, err)
	assert.Equal(t, domain.KindExternalService, domain.KindOf(err))

	stub.Strict = false
	r, err := stub.GetRoute(context.Background(), bogota, medellin, "car")
	require.NoError(t, err)
	assert.InDelta(t, domain.DistanceHaversine(bogota, medellin)/1000, r.DistanceKm, 1e-9)
}
