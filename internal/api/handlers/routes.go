package handlers

import (
	"context"
	"net/http"

	"dispatch-cost-service/internal/api/dto"
	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/ports"
	"dispatch-cost-service/internal/services"
)

// RouteHandler exposes the route provider directly, mostly for diagnosis.
type RouteHandler struct {
	Routes         ports.RouteProvider
	DefaultProfile string
}

func (h *RouteHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile := req.Profile
	if profile == "" {
		profile = h.DefaultProfile
	}

	route, err := h.Routes.GetRoute(r.Context(), req.Origin.Point(), req.Destination.Point(), profile)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

type TollService interface {
	TollsNear(ctx context.Context, points []domain.Point, category int) (domain.TollQuote, error)
	Nearby(ctx context.Context, center domain.Point, radiusKm float64) ([]services.NearbyStation, error)
}

type TollHandler struct {
	Tolls           TollService
	DefaultCategory int
	DefaultRadiusKm float64
}

// Quote attributes catalog stations to an arbitrary polyline.
func (h *TollHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req dto.TollQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category := req.Category
	if category == 0 {
		category = h.DefaultCategory
	}
	points := make([]domain.Point, 0, len(req.Points))
	for i := range req.Points {
		points = append(points, req.Points[i].Point())
	}

	q, err := h.Tolls.TollsNear(r.Context(), points, category)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, q)
}

// Nearby lists stations around ?lat=&lon=, optionally within ?radius_km=.
func (h *TollHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	lat, okLat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lon, okLon, err := queryFloat(r, "lon")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !okLat || !okLon {
		writeError(w, r, http.StatusBadRequest, "lat and lon are required")
		return
	}
	radius, ok, err := queryFloat(r, "radius_km")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		radius = h.DefaultRadiusKm
	}
	if radius < 0 || radius > 500 {
		writeError(w, r, http.StatusBadRequest, "radius_km must be between 0 and 500")
		return
	}

	center := domain.Point{Lat: lat, Lon: lon}
	found, err := h.Tolls.Nearby(r.Context(), center, radius)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.NearbyTollsResponse{Center: center, RadiusKm: radius, Stations: make([]dto.NearbyToll, 0, len(found))}
	for _, n := range found {
		res.Stations = append(res.Stations, dto.NearbyToll{TollStation: n.Station, DistanceMeters: n.DistanceMeters})
	}
	writeJSON(w, r, http.StatusOK, res)
}
