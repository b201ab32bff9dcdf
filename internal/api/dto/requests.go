package dto

import "dispatch-cost-service/internal/domain"

// PointRequest uses pointers so that 0 is a valid coordinate and absence is not.
type PointRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func (p *PointRequest) Point() domain.Point {
	return domain.Point{Lat: *p.Lat, Lon: *p.Lon}
}

type CalculateRequest struct {
	ShipmentID int64 `json:"shipment_id" validate:"required,gt=0"`
	VehicleID  int64 `json:"vehicle_id" validate:"required,gt=0"`
}

type ConfirmRequest struct {
	ShipmentID     int64 `json:"shipment_id" validate:"required,gt=0"`
	VehicleID      int64 `json:"vehicle_id" validate:"required,gt=0"`
	VehicleVersion int64 `json:"vehicle_version" validate:"gte=0"`
}

type RouteRequest struct {
	Origin      *PointRequest `json:"origin" validate:"required"`
	Destination *PointRequest `json:"destination" validate:"required"`
	Profile     string        `json:"profile" validate:"omitempty,max=32"`
}

type TollQuoteRequest struct {
	Points   []PointRequest `json:"points" validate:"max=10000,dive"`
	Category int            `json:"category" validate:"omitempty,min=1,max=5"`
}

type SimulationRequest struct {
	Origin       *PointRequest `json:"origin" validate:"required"`
	Destination  *PointRequest `json:"destination" validate:"required"`
	WeightKg     float64       `json:"weight_kg" validate:"gte=0"`
	Profile      string        `json:"profile" validate:"omitempty,max=32"`
	TollCategory int           `json:"toll_category" validate:"omitempty,min=1,max=5"`
}
