package domain

import (
	"math"
	"time"
)

// FuelParams describes how route distance turns into fuel spend.
type FuelParams struct {
	PricePerUnit float64 `json:"price_per_unit"`
	KmPerUnit    float64 `json:"km_per_unit"`
}

func (f FuelParams) Validate() error {
	if math.IsNaN(f.KmPerUnit) || math.IsInf(f.KmPerUnit, 0) || f.KmPerUnit <= 0 {
		return Errorf(KindValidation, "validate fuel params", "km per fuel unit must be > 0, got %v", f.KmPerUnit)
	}
	if math.IsNaN(f.PricePerUnit) || math.IsInf(f.PricePerUnit, 0) || f.PricePerUnit < 0 {
		return Errorf(KindValidation, "validate fuel params", "fuel price must be >= 0, got %v", f.PricePerUnit)
	}
	return nil
}

// CostBreakdown holds the money side of one evaluation. Total is always
// FuelCost + TollCost.
type CostBreakdown struct {
	FuelUnits     float64 `json:"fuel_units"`
	FuelCost      float64 `json:"fuel_cost"`
	TollCost      float64 `json:"toll_cost"`
	Total         float64 `json:"total"`
	CostPerWeight float64 `json:"cost_per_weight"`
}

const CalculationCalculated = "calculated"

// RouteGeometry is the serialized part of a record: path and attributed tolls.
type RouteGeometry struct {
	Points []Point   `json:"points"`
	Tolls  TollQuote `json:"tolls"`
}

// CalculationRecord is an immutable snapshot of one (shipment, vehicle)
// evaluation. Recalculation creates a new record.
type CalculationRecord struct {
	ID              string        `json:"id"`
	ShipmentID      int64         `json:"shipment_id"`
	VehicleID       int64         `json:"vehicle_id"`
	DriverID        *int64        `json:"driver_id,omitempty"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	Cost            CostBreakdown `json:"cost"`
	Fuel            FuelParams    `json:"fuel"`
	TollCategory    int           `json:"toll_category"`
	Origin          Point         `json:"origin"`
	Destination     Point         `json:"destination"`
	Geometry        RouteGeometry `json:"geometry"`
	State           string        `json:"state"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Score is the ranking signal of the vehicle scorer. Points may be negative.
type Score struct {
	Points  int      `json:"points"`
	Reasons []string `json:"reasons"`
}

// Proposal is a persisted record together with its ranking position.
type Proposal struct {
	Record             *CalculationRecord `json:"record"`
	Vehicle            *Vehicle           `json:"vehicle"`
	DistanceToOriginKm float64            `json:"distance_to_origin_km"`
	Priority           int                `json:"priority"`
	Score              Score              `json:"score"`
	Best               bool               `json:"best"`
}

// Assessment is the result of evaluating one shipment. Proposals are ordered
// by total cost, cheapest first.
type Assessment struct {
	ShipmentID  int64       `json:"shipment_id"`
	Origin      Point       `json:"origin"`
	Destination Destination `json:"destination"`
	Evaluated   int         `json:"evaluated"`
	Skipped     int         `json:"skipped"`
	Proposals   []Proposal  `json:"proposals"`
}

// Best returns the cheapest proposal, or nil when there is none.
func (a *Assessment) Best() *Proposal {
	if a == nil || len(a.Proposals) == 0 {
		return nil
	}
	return &a.Proposals[0]
}

const (
	OutcomeProcessed = "processed"
	OutcomeError     = "error"
)

// BulkOutcome is the per-shipment result of batch processing.
type BulkOutcome struct {
	ShipmentID int64     `json:"shipment_id"`
	Status     string    `json:"status"`
	Kind       Kind      `json:"kind,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Best       *Proposal `json:"best,omitempty"`
}

// ShipmentReport lists every calculation stored for a shipment.
type ShipmentReport struct {
	Shipment     *Shipment            `json:"shipment"`
	Calculations []*CalculationRecord `json:"calculations"`
	Cheapest     *CalculationRecord   `json:"cheapest,omitempty"`
}

// Simulation is an unpersisted cost estimate with a suggested vehicle.
type Simulation struct {
	Route         RouteResult   `json:"route"`
	Tolls         TollQuote     `json:"tolls"`
	Cost          CostBreakdown `json:"cost"`
	Fuel          FuelParams    `json:"fuel"`
	Vehicle       *Vehicle      `json:"vehicle,omitempty"`
	VehicleScore  *Score        `json:"vehicle_score,omitempty"`
	VehicleDistKm float64       `json:"vehicle_distance_km,omitempty"`
	Evaluated     int           `json:"vehicles_evaluated"`
	Warning       string        `json:"warning,omitempty"`
}
