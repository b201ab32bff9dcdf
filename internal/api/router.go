package api

import (
	"net/http"

	"dispatch-cost-service/internal/api/handlers"
	"dispatch-cost-service/internal/platform/metrics"
	"dispatch-cost-service/internal/ports"
)

// Deps are the collaborators of the HTTP surface. Handlers only see ports and
// service interfaces, never concrete adapters.
type Deps struct {
	Engine     handlers.Engine
	Dispatcher handlers.Confirmer
	Shipments  ports.ShipmentRepository
	Vehicles   ports.VehicleRepository
	Routes     ports.RouteProvider
	Routing    handlers.Pinger
	Tolls      handlers.TollService
	Metrics    *metrics.Metrics

	DefaultProfile      string
	DefaultTollCategory int
	NearbyRadiusKm      float64
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	shipments := &handlers.ShipmentHandler{Engine: d.Engine, Shipments: d.Shipments}
	vehicles := &handlers.VehicleHandler{Vehicles: d.Vehicles}
	calcs := &handlers.CalculationHandler{Engine: d.Engine, Dispatcher: d.Dispatcher}
	routes := &handlers.RouteHandler{Routes: d.Routes, DefaultProfile: d.DefaultProfile}
	tolls := &handlers.TollHandler{
		Tolls:           d.Tolls,
		DefaultCategory: d.DefaultTollCategory,
		DefaultRadiusKm: d.NearbyRadiusKm,
	}

	mux.HandleFunc("GET /health", handlers.Health)
	if d.Routing != nil {
		mux.HandleFunc("GET /health/routing", (&handlers.RoutingHealth{Routing: d.Routing}).Check)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	mux.HandleFunc("GET /shipments/pending", shipments.ListPending)
	mux.HandleFunc("POST /shipments/process-pending", shipments.ProcessPending)
	mux.HandleFunc("POST /shipments/{id}/proposals", shipments.Propose)
	mux.HandleFunc("GET /shipments/{id}/report", shipments.Report)
	mux.HandleFunc("GET /vehicles/available", vehicles.ListAvailable)

	mux.HandleFunc("POST /calculations", calcs.Calculate)
	mux.HandleFunc("POST /assignments", calcs.Confirm)
	mux.HandleFunc("POST /simulations", calcs.Simulate)

	mux.HandleFunc("POST /routes", routes.Route)
	mux.HandleFunc("POST /tolls/quote", tolls.Quote)
	mux.HandleFunc("GET /tolls/nearby", tolls.Nearby)

	return recoverMiddleware(requestIDMiddleware(loggingMiddleware(mux)))
}
