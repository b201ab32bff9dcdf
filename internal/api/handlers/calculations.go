package handlers

import (
	"context"
	"net/http"
	"time"

	"dispatch-cost-service/internal/api/dto"
	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/services"
)

type Confirmer interface {
	Confirm(ctx context.Context, req services.ConfirmRequest) (*domain.Vehicle, error)
}

type CalculationHandler struct {
	Engine     Engine
	Dispatcher Confirmer
	Now        func() time.Time
}

func (h *CalculationHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req dto.CalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.Engine.Calculate(r.Context(), req.ShipmentID, req.VehicleID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

// Confirm commits a calculated proposal. A stale vehicle version is a 409.
func (h *CalculationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.Dispatcher.Confirm(r.Context(), services.ConfirmRequest{
		ShipmentID:     req.ShipmentID,
		VehicleID:      req.VehicleID,
		VehicleVersion: req.VehicleVersion,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	writeJSON(w, r, http.StatusOK, dto.ConfirmResponse{
		ShipmentID:  req.ShipmentID,
		Vehicle:     v,
		ConfirmedAt: now().UTC(),
	})
}

func (h *CalculationHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req dto.SimulationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sim, err := h.Engine.Simulate(r.Context(), services.SimulationRequest{
		Origin:       req.Origin.Point(),
		Destination:  req.Destination.Point(),
		WeightKg:     req.WeightKg,
		Profile:      req.Profile,
		TollCategory: req.TollCategory,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sim)
}
