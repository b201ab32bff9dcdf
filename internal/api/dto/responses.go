package dto

import (
	"time"

	"dispatch-cost-service/internal/domain"
)

type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind,omitempty"`
}

type ListShipmentsResponse struct {
	Shipments []*domain.Shipment `json:"shipments"`
}

type ListVehiclesResponse struct {
	Vehicles []*domain.Vehicle `json:"vehicles"`
}

type BulkResponse struct {
	Total     int                  `json:"total"`
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Outcomes  []domain.BulkOutcome `json:"outcomes"`
}

type ConfirmResponse struct {
	ShipmentID  int64           `json:"shipment_id"`
	Vehicle     *domain.Vehicle `json:"vehicle"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

type NearbyToll struct {
	domain.TollStation
	DistanceMeters float64 `json:"distance_meters"`
}

type NearbyTollsResponse struct {
	Center   domain.Point `json:"center"`
	RadiusKm float64      `json:"radius_km"`
	Stations []NearbyToll `json:"stations"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
