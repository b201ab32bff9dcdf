package handlers

import (
	"context"
	"net/http"

	"dispatch-cost-service/internal/api/dto"
	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/ports"
	"dispatch-cost-service/internal/services"
)

// Engine is the subset of the assignment engine the HTTP layer drives.
type Engine interface {
	Evaluate(ctx context.Context, shipmentID int64) (*domain.Assessment, error)
	ProcessPending(ctx context.Context) ([]domain.BulkOutcome, error)
	Report(ctx context.Context, shipmentID int64) (*domain.ShipmentReport, error)
	Calculate(ctx context.Context, shipmentID, vehicleID int64) (*domain.CalculationRecord, error)
	Simulate(ctx context.Context, req services.SimulationRequest) (*domain.Simulation, error)
}

type ShipmentHandler struct {
	Engine    Engine
	Shipments ports.ShipmentRepository
}

func (h *ShipmentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.Shipments.ListPendingShipments(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if shipments == nil {
		shipments = []*domain.Shipment{}
	}
	writeJSON(w, r, http.StatusOK, dto.ListShipmentsResponse{Shipments: shipments})
}

// Propose evaluates the nearest candidates for one shipment and returns them
// cheapest first. Each evaluation is persisted as a calculation record.
func (h *ShipmentHandler) Propose(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.Engine.Evaluate(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

func (h *ShipmentHandler) ProcessPending(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.Engine.ProcessPending(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.BulkResponse{Total: len(outcomes), Outcomes: outcomes}
	if res.Outcomes == nil {
		res.Outcomes = []domain.BulkOutcome{}
	}
	for _, o := range outcomes {
		if o.Status == domain.OutcomeProcessed {
			res.Processed++
		} else {
			res.Failed++
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *ShipmentHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rep, err := h.Engine.Report(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rep.Calculations == nil {
		rep.Calculations = []*domain.CalculationRecord{}
	}
	writeJSON(w, r, http.StatusOK, rep)
}

type VehicleHandler struct {
	Vehicles ports.VehicleRepository
}

// ListAvailable returns the vehicles the engine would currently consider.
func (h *VehicleHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Vehicles.ListEligibleVehicles(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []*domain.Vehicle{}
	}
	writeJSON(w, r, http.StatusOK, dto.ListVehiclesResponse{Vehicles: vehicles})
}
