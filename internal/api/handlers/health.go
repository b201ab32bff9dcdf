package handlers

import (
	"context"
	"net/http"
	"time"

	"dispatch-cost-service/internal/api/dto"
)

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// RoutingHealth reports whether the routing engine answers its health check.
type RoutingHealth struct {
	Routing Pinger
}

func (h *RoutingHealth) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Routing.Ping(ctx); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable", Detail: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, dto.HealthResponse{Status: "ok"})
}
