package ports

import (
	"context"
	"dispatch-cost-service/internal/domain"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Read-only shipment lookups. GetShipment returns ErrNotFound when absent.
type ShipmentRepository interface {
	GetShipment(ctx context.Context, id int64) (*domain.Shipment, error)
	ListPendingShipments(ctx context.Context) ([]*domain.Shipment, error)
}

type PointOfSaleRepository interface {
	GetPointOfSale(ctx context.Context, id int64) (*domain.PointOfSale, error)
}

// Destination catalog lookups by city name. Both return ErrNotFound on a miss.
type DestinationCatalog interface {
	FindExact(ctx context.Context, city string) (*domain.Destination, error)
	// First case-insensitive substring match.
	FindPartial(ctx context.Context, city string) (*domain.Destination, error)
}

type VehicleRepository interface {
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	// Trucks whose state and route state are available and that have a driver.
	ListEligibleVehicles(ctx context.Context) ([]*domain.Vehicle, error)
}

type TollCatalog interface {
	// Stations whose coordinates fall inside box, at most limit of them.
	StationsInBox(ctx context.Context, box domain.BoundingBox, limit int) ([]domain.TollStation, error)
}

// Append-only store for calculation records.
type CalculationStore interface {
	SaveCalculation(ctx context.Context, rec *domain.CalculationRecord) error
	ListCalculations(ctx context.Context, shipmentID int64) ([]*domain.CalculationRecord, error)
}

// Atomic check-and-set of vehicle and shipment state.
// Returns ErrConflict when the vehicle version moved, the vehicle stopped being
// eligible or the shipment is no longer pending.
type AssignmentStore interface {
	ConfirmAssignment(ctx context.Context, shipmentID, vehicleID, vehicleVersion int64) (*domain.Vehicle, error)
}
