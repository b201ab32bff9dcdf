package routing

import (
	"encoding/json"
	"fmt"
	"math"

	"dispatch-cost-service/internal/domain"
)

type routeRequest struct {
	Points        [][]float64 `json:"points"`
	Profile       string      `json:"profile"`
	PointsEncoded bool        `json:"points_encoded"`
	Instructions  bool        `json:"instructions"`
}

type routeResponse struct {
	Paths   []routePath `json:"paths"`
	Message string      `json:"message"`
}

type routePath struct {
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Ascend   float64 `json:"ascend"`
	Descend  float64 `json:"descend"`
	Points   struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"points"`
}

// decodeRoute normalizes the first path: meters to km, ms to minutes and
// [lon, lat(, ele)] to Point.
func decodeRoute(raw []byte) (domain.RouteResult, error) {
	var body routeResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return domain.RouteResult{}, &malformedError{err: err}
	}
	if len(body.Paths) == 0 {
		if body.Message != "" {
			return domain.RouteResult{}, fmt.Errorf("%w: %s", errNoPath, body.Message)
		}
		return domain.RouteResult{}, errNoPath
	}

	p := body.Paths[0]
	if p.Distance < 0 || p.Time < 0 || math.IsNaN(p.Distance) || math.IsNaN(p.Time) {
		return domain.RouteResult{}, &malformedError{
			err: fmt.Errorf("negative distance %v or time %v", p.Distance, p.Time),
		}
	}

	points := make([]domain.Point, 0, len(p.Points.Coordinates))
	for i, c := range p.Points.Coordinates {
		if len(c) < 2 {
			return domain.RouteResult{}, &malformedError{
				err: fmt.Errorf("coordinate #%d has %d values", i, len(c)),
			}
		}
		points = append(points, domain.Point{Lat: c[1], Lon: c[0]})
	}

	return domain.RouteResult{
		DistanceKm:      p.Distance / 1000,
		DurationMinutes: p.Time / 60000,
		Points:          points,
		AscendMeters:    p.Ascend,
		DescendMeters:   p.Descend,
	}, nil
}
