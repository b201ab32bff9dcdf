package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dispatch-cost-service/internal/adapters/routing"
	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

// fleetFixture is one pending shipment from Bogota to Medellin with five
// eligible trucks 1-5 km from the point of sale. The nearer the truck the
// thirstier it is, so the cheapest evaluated truck is the third nearest.
func fleetFixture() *memStore {
	s := newMemStore()
	s.pointsOfSale[10] = &domain.PointOfSale{ID: 10, Name: "Centro", Location: ptr(bogota)}
	s.pointsOfSale[11] = &domain.PointOfSale{ID: 11, Name: "Sin geocodificar"}
	s.destinations = []domain.Destination{
		{ID: 1, City: "Medellín", Location: medellin},
		{ID: 2, City: "Cali", Location: domain.Point{Lat: 3.4516, Lon: -76.5320}},
	}
	s.addShipment(&domain.Shipment{ID: 1, PointOfSaleID: 10, WeightKg: 1000, Destination: "Medellín", State: domain.ShipmentPending})

	s.vehicles = []*domain.Vehicle{
		truck(1, north(bogota, 0.01), 4),
		truck(2, north(bogota, 0.02), 8),
		truck(3, north(bogota, 0.03), 10),
		truck(4, north(bogota, 0.04), 20),
		truck(5, north(bogota, 0.05), 20),
	}
	noDriver := truck(6, bogota, 40)
	noDriver.DriverID = nil
	farAway := truck(7, north(bogota, 1), 40)
	s.vehicles = append(s.vehicles, noDriver, farAway)

	s.tolls = []domain.TollStation{
		{ID: 1, Name: "Siberia", Location: north(bogota, 0.02), Prices: map[int]string{1: "10000", 2: "14000"}},
	}
	return s
}

func straightRoute() domain.RouteResult {
	return domain.RouteResult{DistanceKm: 400, DurationMinutes: 480, Points: []domain.Point{bogota, medellin}}
}

func newTestEngine(t *testing.T, store *memStore, routes ports.RouteProvider, mutate ...func(*EnginePolicy)) *AssignmentEngine {
	t.Helper()

	policy := DefaultEnginePolicy()
	for _, m := range mutate {
		m(&policy)
	}

	ids := 0
	e, err := NewAssignmentEngine(EngineDeps{
		Shipments:    store,
		PointsOfSale: store,
		Destinations: store,
		Vehicles:     store,
		Routes:       routes,
		Tolls:        NewTollFilter(store, DefaultTollPolicy(), nil),
		Records:      store,
		Now:          func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return fmt.Sprintf("calc-%d", ids)
		},
	}, policy)
	require.NoError(t, err)
	return e
}

func TestEvaluateRanksNearestCandidatesByCost(t *testing.T) {
	store := fleetFixture()
	routes := &scriptedRoutes{route: straightRoute()}
	e := newTestEngine(t, store, routes)

	a, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 3, a.Evaluated)
	assert.Zero(t, a.Skipped)
	assert.Equal(t, 3, routes.Calls())
	assert.Equal(t, "Medellín", a.Destination.City)
	require.Len(t, a.Proposals, 3)

	var ids []int64
	for _, p := range a.Proposals {
		ids = append(ids, p.Vehicle.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)

	best := a.Best()
	require.NotNil(t, best)
	assert.True(t, best.Best)
	assert.False(t, a.Proposals[1].Best)
	assert.Equal(t, 3, best.Priority)
	assert.Equal(t, 1, a.Proposals[2].Priority)
	assert.InDelta(t, 3.33, best.DistanceToOriginKm, 0.01)
	assert.Equal(t, 100, best.Score.Points)

	rec := best.Record
	assert.Equal(t, int64(1), rec.ShipmentID)
	assert.Equal(t, int64(103), *rec.DriverID)
	assert.Equal(t, 10.0, rec.Fuel.KmPerUnit)
	assert.Equal(t, 40.0, rec.Cost.FuelUnits)
	assert.Equal(t, 480000.0, rec.Cost.FuelCost)
	assert.Equal(t, 10000.0, rec.Cost.TollCost)
	assert.Equal(t, 490000.0, rec.Cost.Total)
	assert.Equal(t, 490.0, rec.Cost.CostPerWeight)
	assert.Equal(t, domain.CalculationCalculated, rec.State)
	assert.Equal(t, fixedNow, rec.CreatedAt)
	assert.Equal(t, bogota, rec.Origin)
	assert.Equal(t, medellin, rec.Destination)
	require.Len(t, rec.Geometry.Tolls.Stations, 1)

	for i := 1; i < len(a.Proposals); i++ {
		assert.LessOrEqual(t, a.Proposals[i-1].Record.Cost.Total, a.Proposals[i].Record.Cost.Total)
	}
	assert.Len(t, store.records, 3)

	// Evaluation never touches vehicle or shipment state.
	s, err := store.GetShipment(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentPending, s.State)
	for _, v := range store.vehicles {
		assert.Equal(t, int64(1), v.Version)
	}
}

func TestEvaluateVehicleTollCategoryOverridesPolicy(t *testing.T) {
	store := fleetFixture()
	store.vehicles[2].TollCategory = 2
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	a, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)

	for _, p := range a.Proposals {
		if p.Vehicle.ID == 3 {
			assert.Equal(t, 2, p.Record.TollCategory)
			assert.Equal(t, 14000.0, p.Record.Cost.TollCost)
		} else {
			assert.Equal(t, 1, p.Record.TollCategory)
		}
	}
}

func TestEvaluateIsRepeatable(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	first, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, store.records, 6)
	for i := range first.Proposals {
		assert.Equal(t, first.Proposals[i].Vehicle.ID, second.Proposals[i].Vehicle.ID)
		assert.Equal(t, first.Proposals[i].Record.Cost, second.Proposals[i].Record.Cost)
		assert.NotEqual(t, first.Proposals[i].Record.ID, second.Proposals[i].Record.ID)
	}
}

func TestEvaluateSkipsCandidatesWithoutRoute(t *testing.T) {
	store := fleetFixture()
	routes := &scriptedRoutes{route: straightRoute(), fail: func(n int) bool { return n == 1 }}
	e := newTestEngine(t, store, routes)

	a, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Evaluated)
	assert.Equal(t, 1, a.Skipped)
	assert.Len(t, a.Proposals, 2)
	assert.Len(t, store.records, 2)
}

func TestEvaluateAllRoutesFailing(t *testing.T) {
	store := fleetFixture()
	routes := &scriptedRoutes{fail: func(int) bool { return true }}
	e := newTestEngine(t, store, routes)

	_, err := e.Evaluate(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindExternalService, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrRouteUnavailable)
	assert.Empty(t, store.records)
}

func TestEvaluateNoVehicleInRadius(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()}, func(p *EnginePolicy) {
		p.SearchRadiusKm = 0.5
	})

	_, err := e.Evaluate(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindNoCandidates, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrNoCandidates)
}

func TestEvaluateResolutionFailures(t *testing.T) {
	store := fleetFixture()
	store.addShipment(&domain.Shipment{ID: 2, PointOfSaleID: 11, WeightKg: 10, Destination: "Cali", State: domain.ShipmentPending})
	store.addShipment(&domain.Shipment{ID: 3, PointOfSaleID: 10, WeightKg: 10, Destination: "Atlantis", State: domain.ShipmentPending})
	store.addShipment(&domain.Shipment{ID: 4, PointOfSaleID: 99, WeightKg: 10, Destination: "Cali", State: domain.ShipmentPending})
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	_, err := e.Evaluate(context.Background(), 404)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = e.Evaluate(context.Background(), 2)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrNoCoordinates)

	_, err = e.Evaluate(context.Background(), 3)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.ErrorContains(t, err, "destino")

	_, err = e.Evaluate(context.Background(), 4)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestEvaluateMatchesPartialDestination(t *testing.T) {
	store := fleetFixture()
	store.shipments[1].Destination = "medell"
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	a, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Destination.ID)
}

func TestEvaluateAbortsOnStoreFailure(t *testing.T) {
	store := fleetFixture()
	store.saveErr = errors.New("disk full")
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	_, err := e.Evaluate(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindComputation, domain.KindOf(err))
	assert.ErrorContains(t, err, "disk full")
}

func TestEvaluateAbortsOnTollCatalogFailure(t *testing.T) {
	store := fleetFixture()
	store.tollErr = errors.New("catalog offline")
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	_, err := e.Evaluate(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindComputation, domain.KindOf(err))
}

func TestEvaluateCancellationStopsInFlightRoutes(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, &scriptedRoutes{block: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := e.Evaluate(ctx, 1)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("evaluation did not stop after cancellation")
	}
	assert.Empty(t, store.records)
}

func TestCalculate(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, routing.NewStubProvider(routing.StubRoute{From: bogota, To: medellin, Route: straightRoute()}))

	rec, err := e.Calculate(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.VehicleID)
	assert.Equal(t, 20.0, rec.Fuel.KmPerUnit)
	assert.Equal(t, 250000.0, rec.Cost.Total)
	assert.Len(t, store.records, 1)

	_, err = e.Calculate(context.Background(), 1, 6)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = e.Calculate(context.Background(), 1, 999)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCalculateRouteFailureKeepsProviderKind(t *testing.T) {
	store := fleetFixture()
	stub := routing.NewStubProvider()
	stub.Strict = true
	e := newTestEngine(t, store, stub)

	_, err := e.Calculate(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindExternalService, domain.KindOf(err))
}

func TestProcessPendingReportsEveryShipmentInOrder(t *testing.T) {
	store := fleetFixture()
	store.addShipment(&domain.Shipment{ID: 2, PointOfSaleID: 10, WeightKg: 200, Destination: "Atlantis", State: domain.ShipmentPending})
	store.addShipment(&domain.Shipment{ID: 3, PointOfSaleID: 10, WeightKg: 200, Destination: "Cali", State: domain.ShipmentDelivered})
	store.addShipment(&domain.Shipment{ID: 4, PointOfSaleID: 11, WeightKg: 200, Destination: "Cali", State: domain.ShipmentPending})
	store.addShipment(&domain.Shipment{ID: 5, PointOfSaleID: 10, WeightKg: 200, Destination: "cali", State: domain.ShipmentPending})
	e := newTestEngine(t, store, routing.NewStubProvider(), func(p *EnginePolicy) { p.BulkWorkers = 2 })

	out, err := e.ProcessPending(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, []int64{1, 2, 4, 5}, []int64{out[0].ShipmentID, out[1].ShipmentID, out[2].ShipmentID, out[3].ShipmentID})

	assert.Equal(t, domain.OutcomeProcessed, out[0].Status)
	require.NotNil(t, out[0].Best)
	assert.Equal(t, int64(3), out[0].Best.Vehicle.ID)

	assert.Equal(t, domain.OutcomeError, out[1].Status)
	assert.Equal(t, domain.KindNotFound, out[1].Kind)
	assert.Contains(t, out[1].Reason, `destino "Atlantis"`)
	assert.Nil(t, out[1].Best)

	assert.Equal(t, domain.OutcomeError, out[2].Status)
	assert.Equal(t, domain.KindValidation, out[2].Kind)

	assert.Equal(t, domain.OutcomeProcessed, out[3].Status)
}

func TestProcessPendingWithCancelledContext(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, routing.NewStubProvider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := e.ProcessPending(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.OutcomeError, out[0].Status)
	assert.Contains(t, out[0].Reason, context.Canceled.Error())
}

func TestReportPicksCheapestRecord(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	_, err := e.Evaluate(context.Background(), 1)
	require.NoError(t, err)

	rep, err := e.Report(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rep.Calculations, 3)
	require.NotNil(t, rep.Cheapest)
	assert.Equal(t, int64(3), rep.Cheapest.VehicleID)

	_, err = e.Report(context.Background(), 77)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestSimulate(t *testing.T) {
	store := fleetFixture()
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	sim, err := e.Simulate(context.Background(), SimulationRequest{Origin: bogota, Destination: medellin, WeightKg: 1000})
	require.NoError(t, err)
	assert.Equal(t, 400.0, sim.Route.DistanceKm)
	assert.Equal(t, 10000.0, sim.Tolls.TotalCost)
	assert.Equal(t, 610000.0, sim.Cost.Total)
	assert.Equal(t, 6, sim.Evaluated)
	require.NotNil(t, sim.Vehicle)
	assert.Equal(t, int64(1), sim.Vehicle.ID)
	assert.Equal(t, 100, sim.VehicleScore.Points)
	assert.Empty(t, sim.Warning)
	assert.Empty(t, store.records)
}

func TestSimulateWithoutFleetWarns(t *testing.T) {
	store := fleetFixture()
	store.vehicles = nil
	e := newTestEngine(t, store, &scriptedRoutes{route: straightRoute()})

	sim, err := e.Simulate(context.Background(), SimulationRequest{Origin: bogota, Destination: medellin, WeightKg: 50})
	require.NoError(t, err)
	assert.Nil(t, sim.Vehicle)
	assert.Equal(t, "no vehicles available", sim.Warning)
	assert.Positive(t, sim.Cost.Total)
}

func TestSimulateRejectsBadInput(t *testing.T) {
	e := newTestEngine(t, fleetFixture(), &scriptedRoutes{route: straightRoute()})

	_, err := e.Simulate(context.Background(), SimulationRequest{Origin: bogota, Destination: medellin, WeightKg: -1})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = e.Simulate(context.Background(), SimulationRequest{Origin: domain.Point{Lat: 100}, Destination: medellin})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestNewAssignmentEngineValidatesPolicy(t *testing.T) {
	store := newMemStore()
	deps := EngineDeps{
		Shipments: store, PointsOfSale: store, Destinations: store, Vehicles: store,
		Routes: routing.NewStubProvider(), Tolls: NewTollFilter(store, DefaultTollPolicy(), nil), Records: store,
	}

	bad := []func(*EnginePolicy){
		func(p *EnginePolicy) { p.SearchRadiusKm = 0 },
		func(p *EnginePolicy) { p.MaxCandidates = 0 },
		func(p *EnginePolicy) { p.BulkWorkers = 0 },
		func(p *EnginePolicy) { p.TollCategory = 9 },
		func(p *EnginePolicy) { p.Fuel.KmPerUnit = 0 },
	}
	for i, mutate := range bad {
		p := DefaultEnginePolicy()
		mutate(&p)
		_, err := NewAssignmentEngine(deps, p)
		assert.Error(t, err, "case %d", i)
	}

	_, err := NewAssignmentEngine(EngineDeps{}, DefaultEnginePolicy())
	assert.Error(t, err)
}
