package domain

import (
	"fmt"
	"math"
)

const (
	// KmPerDegree is the planar approximation used for coarse ranking.
	KmPerDegree = 111.0
	// EarthRadiusMeters is the mean Earth radius used by DistanceHaversine.
	EarthRadiusMeters = 6371000.0
)

// Immutable geographic point, always (lat, lon) inside the service.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects non-finite and out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return Errorf(KindValidation, "validate point", "coordinates must be finite numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return Errorf(KindValidation, "validate point", "latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return Errorf(KindValidation, "validate point", "longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

func (p Point) String() string { return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon) }

// Return the point as [lon, lat] for routing APIs that expect GeoJSON order.
func (p Point) LonLat() []float64 { return []float64{p.Lon, p.Lat} }

// DistanceApprox returns a planar distance in km (Euclidean over degrees).
// Only suitable for ranking and radius filtering.
func DistanceApprox(a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon
	return math.Sqrt(dLat*dLat+dLon*dLon) * KmPerDegree
}

// DistanceHaversine returns the great-circle distance in meters.
func DistanceHaversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundsOf returns the box enclosing points, grown by padDeg on every side.
// The zero box is returned for an empty slice.
func BoundsOf(points []Point, padDeg float64) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}

	b := BoundingBox{
		MinLat: points[0].Lat,
		MaxLat: points[0].Lat,
		MinLon: points[0].Lon,
		MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}

	b.MinLat -= padDeg
	b.MaxLat += padDeg
	b.MinLon -= padDeg
	b.MaxLon += padDeg
	return b
}

// BoxAround returns a square box of radiusKm around center, using KmPerDegree.
func BoxAround(center Point, radiusKm float64) BoundingBox {
	deg := radiusKm / KmPerDegree
	return BoundingBox{
		MinLat: center.Lat - deg,
		MaxLat: center.Lat + deg,
		MinLon: center.Lon - deg,
		MaxLon: center.Lon + deg,
	}
}

func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}
