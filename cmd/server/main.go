package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatch-cost-service/internal/adapters/cache"
	"dispatch-cost-service/internal/adapters/repositories"
	"dispatch-cost-service/internal/adapters/routing"
	"dispatch-cost-service/internal/api"
	"dispatch-cost-service/internal/config"
	"dispatch-cost-service/internal/platform/db"
	"dispatch-cost-service/internal/platform/logger"
	"dispatch-cost-service/internal/platform/metrics"
	"dispatch-cost-service/internal/platform/obs"
	"dispatch-cost-service/internal/ports"
	"dispatch-cost-service/internal/services"

	"go.uber.org/zap"
)

// routeProvider is what the engine and the health endpoint need from routing.
type routeProvider interface {
	ports.RouteProvider
	Ping(ctx context.Context) error
}

// main is the application composition root.
// It wires concrete adapters (Postgres, GraphHopper, Redis) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	obs.SetLogger(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pg, err := db.Open(ctx, cfg.DB.URL, db.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := repositories.InitSchema(ctx, pg); err != nil {
		return err
	}

	m := metrics.New()

	routes, err := newRouteProvider(ctx, cfg, pg, m, log)
	if err != nil {
		return err
	}

	shipments := repositories.NewPgShipmentRepository(pg)
	vehicles := repositories.NewPgVehicleRepository(pg)
	records := repositories.NewPgCalculationStore(pg)
	tolls := services.NewTollFilter(repositories.NewPgTollCatalog(pg), services.TollPolicy{
		ThresholdKm:    cfg.Toll.ThresholdKm,
		PaddingDeg:     cfg.Toll.PaddingDeg,
		CatalogLimit:   cfg.Toll.CatalogLimit,
		NearbyRadiusKm: cfg.Toll.NearbyRadiusKm,
		NearbyLimit:    cfg.Toll.NearbyLimit,
	}, m)

	engine, err := services.NewAssignmentEngine(services.EngineDeps{
		Shipments:    shipments,
		PointsOfSale: shipments,
		Destinations: repositories.NewPgDestinationCatalog(pg),
		Vehicles:     vehicles,
		Routes:       routes,
		Tolls:        tolls,
		Records:      records,
		Metrics:      m,
	}, services.EnginePolicy{
		SearchRadiusKm: cfg.Engine.SearchRadiusKm,
		MaxCandidates:  cfg.Engine.MaxCandidates,
		BulkWorkers:    cfg.Engine.BulkWorkers,
		Profile:        cfg.Routing.Profile,
		TollCategory:   cfg.Engine.TollCategory,
		Fuel:           cfg.Engine.Fuel,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Engine:     engine,
		Dispatcher: services.NewDispatcher(records, vehicles),
		Shipments:  shipments,
		Vehicles:   vehicles,
		Routes:     routes,
		Routing:    routes,
		Tolls:      tolls,
		Metrics:    m,

		DefaultProfile:      cfg.Routing.Profile,
		DefaultTollCategory: cfg.Engine.TollCategory,
		NearbyRadiusKm:      cfg.Toll.NearbyRadiusKm,
	})

	// Bulk processing may wait on several provider round trips per shipment.
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("routing", cfg.Routing.Mode),
			zap.String("route_cache", cfg.Cache.Backend))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.HTTP.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newRouteProvider(
	ctx context.Context,
	cfg *config.Config,
	pg *sql.DB,
	m *metrics.Metrics,
	log *zap.Logger,
) (routeProvider, error) {
	var next routeProvider
	switch cfg.Routing.Mode {
	case "stub":
		log.Warn("routing in stub mode: straight-line routes, no provider calls")
		next = routing.NewStubProvider()
	default:
		gh, err := routing.NewGraphHopperProvider(routing.Options{
			BaseURL:        cfg.Routing.BaseURL,
			APIKey:         cfg.Routing.APIKey,
			DefaultProfile: cfg.Routing.Profile,
			Timeout:        cfg.Routing.Timeout,
			RateLimit:      cfg.Routing.RateLimit,
			RateBurst:      cfg.Routing.RateBurst,
			Metrics:        m,
		})
		if err != nil {
			return nil, err
		}
		next = gh
	}

	var rc ports.RouteCache
	switch cfg.Cache.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		rc = cache.NewRedisRouteCache(client)
	case "sql":
		sc := cache.NewSQLRouteCache(pg)
		if n, err := sc.Purge(ctx); err != nil {
			log.Warn("route cache purge failed", zap.Error(err))
		} else if n > 0 {
			log.Info("expired routes purged", zap.Int64("rows", n))
		}
		rc = sc
	default:
		return next, nil
	}

	return routing.NewCachedProvider(next, rc, cfg.Cache.TTL, m), nil
}
