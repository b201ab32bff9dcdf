package domain

type VehicleCategory string

const (
	CategoryTruck VehicleCategory = "truck"
	CategoryCar   VehicleCategory = "car"
)

type VehicleState string

const (
	VehicleAvailable   VehicleState = "available"
	VehicleInUse       VehicleState = "in_use"
	VehicleMaintenance VehicleState = "maintenance"
	VehicleDeactivated VehicleState = "deactivated"
)

type RouteState string

const (
	RouteAvailable   RouteState = "available"
	RouteEnRoute     RouteState = "en_route"
	RouteLoading     RouteState = "loading"
	RouteMaintenance RouteState = "maintenance"
)

// Vehicle as seen by the engine. Version increments on every state change and
// backs the optimistic check performed when an assignment is confirmed.
type Vehicle struct {
	ID         int64           `json:"id"`
	Plate      string          `json:"plate"`
	Category   VehicleCategory `json:"category"`
	CapacityKg float64         `json:"capacity_kg"`
	State      VehicleState    `json:"state"`
	RouteState RouteState      `json:"route_state"`
	DriverID   *int64          `json:"driver_id,omitempty"`
	Location   *Point          `json:"location,omitempty"`
	// Optional per-vehicle overrides; zero means "use the engine policy".
	KmPerFuelUnit float64 `json:"km_per_fuel_unit,omitempty"`
	TollCategory  int     `json:"toll_category,omitempty"`
	Version       int64   `json:"version"`
}

func (v *Vehicle) HasDriver() bool { return v.DriverID != nil }

// Eligible reports whether the vehicle may be proposed for a shipment:
// a truck, operationally and route-wise available, with a driver.
func (v *Vehicle) Eligible() bool {
	return v.Category == CategoryTruck &&
		v.State == VehicleAvailable &&
		v.RouteState == RouteAvailable &&
		v.HasDriver()
}
