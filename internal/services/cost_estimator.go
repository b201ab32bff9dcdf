package services

import (
	"math"

	"dispatch-cost-service/internal/domain"
)

// EstimateCost turns a route and its toll quote into money.
// Total is always fuel plus tolls; cost per weight is 0 for non-positive weight.
func EstimateCost(
	route domain.RouteResult,
	tolls domain.TollQuote,
	fuel domain.FuelParams,
	weightKg float64,
) (domain.CostBreakdown, error) {
	if err := fuel.Validate(); err != nil {
		return domain.CostBreakdown{}, err
	}
	if route.DistanceKm < 0 || math.IsNaN(route.DistanceKm) || math.IsInf(route.DistanceKm, 0) {
		return domain.CostBreakdown{}, domain.Errorf(domain.KindValidation, "estimate cost",
			"route distance must be a non-negative number, got %v", route.DistanceKm)
	}
	if tolls.TotalCost < 0 || math.IsNaN(tolls.TotalCost) {
		return domain.CostBreakdown{}, domain.Errorf(domain.KindValidation, "estimate cost",
			"toll cost must be non-negative, got %v", tolls.TotalCost)
	}

	units := route.DistanceKm / fuel.KmPerUnit
	c := domain.CostBreakdown{
		FuelUnits: units,
		FuelCost:  units * fuel.PricePerUnit,
		TollCost:  tolls.TotalCost,
	}
	c.Total = c.FuelCost + c.TollCost
	if weightKg > 0 {
		c.CostPerWeight = c.Total / weightKg
	}
	return c, nil
}
