package services

import "dispatch-cost-service/internal/domain"

const (
	reasonCapacityAdequate     = "capacity_adequate"
	reasonCapacityExact        = "capacity_exact"
	reasonCapacityInsufficient = "capacity_insufficient"
	reasonProximityExcellent   = "proximity_excellent"
	reasonProximityGood        = "proximity_good"
	reasonProximityAcceptable  = "proximity_acceptable"
	reasonNoLocation           = "no_location"
	reasonStateAvailable       = "state_available"
	reasonDriverAssigned       = "driver_assigned"
)

// ScoreVehicle ranks a vehicle for a shipment of weightKg whose origin lies
// distanceKm away. distanceKm is ignored when the vehicle has no location.
// The score is a ranking signal and may be negative.
func ScoreVehicle(v *domain.Vehicle, weightKg, distanceKm float64) domain.Score {
	s := domain.Score{Reasons: make([]string, 0, 4)}

	switch {
	case v.CapacityKg > weightKg:
		s.Points += 40
		s.Reasons = append(s.Reasons, reasonCapacityAdequate)
	case v.CapacityKg == weightKg:
		s.Points += 30
		s.Reasons = append(s.Reasons, reasonCapacityExact)
	default:
		s.Points -= 20
		s.Reasons = append(s.Reasons, reasonCapacityInsufficient)
	}

	if v.Location == nil {
		s.Reasons = append(s.Reasons, reasonNoLocation)
	} else {
		switch {
		case distanceKm < 10:
			s.Points += 30
			s.Reasons = append(s.Reasons, reasonProximityExcellent)
		case distanceKm < 50:
			s.Points += 20
			s.Reasons = append(s.Reasons, reasonProximityGood)
		case distanceKm < 100:
			s.Points += 10
			s.Reasons = append(s.Reasons, reasonProximityAcceptable)
		}
	}

	if v.State == domain.VehicleAvailable {
		s.Points += 20
		s.Reasons = append(s.Reasons, reasonStateAvailable)
	}
	if v.HasDriver() {
		s.Points += 10
		s.Reasons = append(s.Reasons, reasonDriverAssigned)
	}

	return s
}

// ScoredVehicle pairs a vehicle with its score and distance to the origin.
type ScoredVehicle struct {
	Vehicle    *domain.Vehicle
	DistanceKm float64
	Score      domain.Score
}

// RankVehicles scores every vehicle against origin and returns them in input
// order. Vehicles without a location get no proximity points.
func RankVehicles(vehicles []*domain.Vehicle, weightKg float64, origin domain.Point) []ScoredVehicle {
	out := make([]ScoredVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		sv := ScoredVehicle{Vehicle: v}
		if v.Location != nil {
			sv.DistanceKm = domain.DistanceApprox(origin, *v.Location)
		}
		sv.Score = ScoreVehicle(v, weightKg, sv.DistanceKm)
		out = append(out, sv)
	}
	return out
}

// PickBest returns the highest-scoring entry; ties keep the earliest one.
func PickBest(scored []ScoredVehicle) (ScoredVehicle, bool) {
	if len(scored) == 0 {
		return ScoredVehicle{}, false
	}
	best := scored[0]
	for _, sv := range scored[1:] {
		if sv.Score.Points > best.Score.Points {
			best = sv
		}
	}
	return best, true
}
