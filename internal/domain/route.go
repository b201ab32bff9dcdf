package domain

// RouteResult is a normalized single-leg route.
// Distance is in km, duration in minutes and points are (lat, lon).
type RouteResult struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Points          []Point `json:"points"`
	AscendMeters    float64 `json:"ascend_meters,omitempty"`
	DescendMeters   float64 `json:"descend_meters,omitempty"`
}
