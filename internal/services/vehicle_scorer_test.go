package services

import (
	"testing"

	"dispatch-cost-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreVehicleBestCase(t *testing.T) {
	v := truck(1, bogota, 0)

	s := ScoreVehicle(v, 1000, 5)

	assert.Equal(t, 100, s.Points)
	assert.Equal(t, []string{
		reasonCapacityAdequate,
		reasonProximityExcellent,
		reasonStateAvailable,
		reasonDriverAssigned,
	}, s.Reasons)
}

func TestScoreVehicleCanGoNegative(t *testing.T) {
	v := &domain.Vehicle{ID: 2, CapacityKg: 500, State: domain.VehicleInUse}

	s := ScoreVehicle(v, 1000, 3)

	assert.Equal(t, -20, s.Points)
	assert.Equal(t, []string{reasonCapacityInsufficient, reasonNoLocation}, s.Reasons)
}

func TestScoreVehicleBands(t *testing.T) {
	cases := []struct {
		weight, distance float64
		want             int
	}{
		{5000, 9.99, 30 + 30 + 30},
		{1000, 10, 40 + 20 + 30},
		{1000, 49.9, 40 + 20 + 30},
		{1000, 50, 40 + 10 + 30},
		{1000, 100, 40 + 0 + 30},
	}
	for _, tc := range cases {
		got := ScoreVehicle(truck(1, bogota, 0), tc.weight, tc.distance)
		assert.Equal(t, tc.want, got.Points, "weight=%v distance=%v", tc.weight, tc.distance)
	}
}

func TestPickBestKeepsFirstOnTies(t *testing.T) {
	a := truck(1, north(bogota, 0.5), 0)
	b := truck(2, north(bogota, 0.5), 0)
	c := truck(3, north(bogota, 2), 0)

	best, ok := PickBest(RankVehicles([]*domain.Vehicle{c, a, b}, 1000, bogota))
	require.True(t, ok)
	assert.Equal(t, int64(1), best.Vehicle.ID)
	assert.InDelta(t, 55.5, best.DistanceKm, 0.01)

	_, ok = PickBest(nil)
	assert.False(t, ok)
}
