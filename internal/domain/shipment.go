package domain

import "strings"

type ShipmentState string

const (
	ShipmentPending   ShipmentState = "pending"
	ShipmentInTransit ShipmentState = "in_transit"
	ShipmentDelivered ShipmentState = "delivered"
	ShipmentCancelled ShipmentState = "cancelled"
)

// A Shipment is cargo leaving a point of sale for a destination named in free text.
// Its state is only changed by a confirmed assignment or by delivery confirmation.
type Shipment struct {
	ID            int64         `json:"id"`
	PointOfSaleID int64         `json:"point_of_sale_id"`
	WeightKg      float64       `json:"weight_kg"`
	Destination   string        `json:"destination"`
	State         ShipmentState `json:"state"`
}

func (s *Shipment) Pending() bool { return s.State == ShipmentPending }

// PointOfSale is the origin of a shipment. Location is nil when it was never geocoded.
type PointOfSale struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Location *Point `json:"location,omitempty"`
}

// Destination is a catalog entry mapping a city name to coordinates.
type Destination struct {
	ID       int64  `json:"id"`
	City     string `json:"city"`
	Location Point  `json:"location"`
}

// NormalizeCity collapses whitespace so catalog lookups are stable.
func NormalizeCity(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
