package services

import (
	"context"
	"fmt"
	"math"
	"slices"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/metrics"
	"dispatch-cost-service/internal/platform/obs"
	"dispatch-cost-service/internal/ports"
)

// TollPolicy holds the geofencing parameters of the toll filter.
type TollPolicy struct {
	// Stations farther than this from every route point are not charged.
	ThresholdKm float64
	// Padding added around the route bounding box before querying the catalog.
	PaddingDeg   float64
	CatalogLimit int

	NearbyRadiusKm float64
	NearbyLimit    int
}

func DefaultTollPolicy() TollPolicy {
	return TollPolicy{
		ThresholdKm:    5,
		PaddingDeg:     0.2,
		CatalogLimit:   100,
		NearbyRadiusKm: 10,
		NearbyLimit:    50,
	}
}

// TollFilter attributes catalog toll stations to a route by proximity.
type TollFilter struct {
	catalog ports.TollCatalog
	policy  TollPolicy
	metrics *metrics.Metrics
}

func NewTollFilter(catalog ports.TollCatalog, policy TollPolicy, m *metrics.Metrics) *TollFilter {
	return &TollFilter{catalog: catalog, policy: policy, metrics: m}
}

// TollsNear returns the stations lying within the threshold of any route point
// and the sum of their prices for category. Routes with fewer than two distinct
// points yield an empty quote without touching the catalog.
func (f *TollFilter) TollsNear(ctx context.Context, points []domain.Point, category int) (_ domain.TollQuote, err error) {
	defer obs.Time(ctx, "tolls.Near")(&err)

	quote := domain.TollQuote{Category: category, Stations: []domain.MatchedToll{}}

	if !domain.ValidTollCategory(category) {
		return quote, domain.Errorf(domain.KindValidation, "tolls near", "toll category must be 1..5, got %d", category)
	}
	if degenerate(points) {
		return quote, nil
	}

	box := domain.BoundsOf(points, f.policy.PaddingDeg)
	stations, err := f.catalog.StationsInBox(ctx, box, f.policy.CatalogLimit)
	if err != nil {
		return quote, domain.Wrap(domain.KindComputation, "tolls near", fmt.Errorf("query catalog: %w", err))
	}

	threshold := f.policy.ThresholdKm*1000 + distanceTolerance
	for i := range stations {
		st := &stations[i]

		nearest := math.Inf(1)
		for _, p := range points {
			if d := domain.DistanceHaversine(st.Location, p); d < nearest {
				nearest = d
			}
		}
		if nearest > threshold {
			continue
		}

		price := st.PriceFor(category)
		quote.TotalCost += price
		quote.Stations = append(quote.Stations, domain.MatchedToll{
			StationID:      st.ID,
			Name:           st.Name,
			Sector:         st.Sector,
			Operator:       st.Operator,
			Location:       st.Location,
			Price:          price,
			DistanceMeters: nearest,
		})
	}

	f.metrics.ObserveTollMatches(len(quote.Stations))
	return quote, nil
}

// Absorbs haversine rounding so a station placed exactly on the threshold
// still counts.
const distanceTolerance = 1e-6

// degenerate reports whether points describe no movement at all.
func degenerate(points []domain.Point) bool {
	if len(points) < 2 {
		return true
	}
	for _, p := range points[1:] {
		if p != points[0] {
			return false
		}
	}
	return true
}

// NearbyStation is a catalog entry with its distance from a search center.
type NearbyStation struct {
	Station        domain.TollStation `json:"station"`
	DistanceMeters float64            `json:"distance_meters"`
}

// Nearby lists stations within radiusKm of center, nearest first.
// A non-positive radius uses the policy default.
func (f *TollFilter) Nearby(ctx context.Context, center domain.Point, radiusKm float64) ([]NearbyStation, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = f.policy.NearbyRadiusKm
	}

	stations, err := f.catalog.StationsInBox(ctx, domain.BoxAround(center, radiusKm), f.policy.NearbyLimit)
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "nearby tolls", fmt.Errorf("query catalog: %w", err))
	}

	out := make([]NearbyStation, 0, len(stations))
	for _, st := range stations {
		d := domain.DistanceHaversine(center, st.Location)
		if d > radiusKm*1000 {
			continue
		}
		out = append(out, NearbyStation{Station: st, DistanceMeters: d})
	}
	slices.SortStableFunc(out, func(a, b NearbyStation) int {
		switch {
		case a.DistanceMeters < b.DistanceMeters:
			return -1
		case a.DistanceMeters > b.DistanceMeters:
			return 1
		}
		return 0
	})
	return out, nil
}
