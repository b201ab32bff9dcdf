package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/ports"
)

var (
	bogota   = domain.Point{Lat: 4.6097, Lon: -74.0817}
	medellin = domain.Point{Lat: 6.2442, Lon: -75.5812}
)

// memStore implements every repository port over in-memory maps.
type memStore struct {
	mu sync.Mutex

	shipments    map[int64]*domain.Shipment
	order        []int64
	pointsOfSale map[int64]*domain.PointOfSale
	destinations []domain.Destination
	vehicles     []*domain.Vehicle
	tolls        []domain.TollStation
	records      []*domain.CalculationRecord

	tollQueries int
	tollErr     error
	saveErr     error
}

func newMemStore() *memStore {
	return &memStore{
		shipments:    map[int64]*domain.Shipment{},
		pointsOfSale: map[int64]*domain.PointOfSale{},
	}
}

func (m *memStore) addShipment(s *domain.Shipment) {
	m.shipments[s.ID] = s
	m.order = append(m.order, s.ID)
}

func (m *memStore) GetShipment(_ context.Context, id int64) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return nil, fmt.Errorf("shipment %d: %w", id, ports.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListPendingShipments(context.Context) ([]*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Shipment
	for _, id := range m.order {
		if s := m.shipments[id]; s.Pending() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) GetPointOfSale(_ context.Context, id int64) (*domain.PointOfSale, error) {
	p, ok := m.pointsOfSale[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return p, nil
}

func (m *memStore) FindExact(_ context.Context, city string) (*domain.Destination, error) {
	for i := range m.destinations {
		if m.destinations[i].City == city {
			d := m.destinations[i]
			return &d, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) FindPartial(_ context.Context, city string) (*domain.Destination, error) {
	q := strings.ToLower(city)
	for i := range m.destinations {
		if strings.Contains(strings.ToLower(m.destinations[i].City), q) {
			d := m.destinations[i]
			return &d, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) GetVehicle(_ context.Context, id int64) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vehicles {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) ListEligibleVehicles(context.Context) ([]*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Vehicle
	for _, v := range m.vehicles {
		if v.Eligible() {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) StationsInBox(_ context.Context, box domain.BoundingBox, limit int) ([]domain.TollStation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tollQueries++
	if m.tollErr != nil {
		return nil, m.tollErr
	}
	var out []domain.TollStation
	for _, st := range m.tolls {
		if box.Contains(st.Location) && len(out) < limit {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStore) SaveCalculation(_ context.Context, rec *domain.CalculationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) ListCalculations(_ context.Context, shipmentID int64) ([]*domain.CalculationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CalculationRecord
	for _, r := range m.records {
		if r.ShipmentID == shipmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ConfirmAssignment(_ context.Context, shipmentID, vehicleID, version int64) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var v *domain.Vehicle
	for _, cand := range m.vehicles {
		if cand.ID == vehicleID {
			v = cand
		}
	}
	s, ok := m.shipments[shipmentID]
	if v == nil || !ok {
		return nil, ports.ErrNotFound
	}
	if v.Version != version || !v.Eligible() || !s.Pending() {
		return nil, ports.ErrConflict
	}

	v.State = domain.VehicleInUse
	v.Version++
	s.State = domain.ShipmentInTransit
	cp := *v
	return &cp, nil
}

// scriptedRoutes returns the same route for every call and fails the calls
// for which fail reports true. Calls are numbered from 1.
type scriptedRoutes struct {
	mu    sync.Mutex
	calls int
	route domain.RouteResult
	fail  func(call int) bool
	block bool
}

func (s *scriptedRoutes) GetRoute(ctx context.Context, _, _ domain.Point, _ string) (domain.RouteResult, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return domain.RouteResult{}, ctx.Err()
	}
	if s.fail != nil && s.fail(n) {
		return domain.RouteResult{}, domain.Wrap(domain.KindExternalService, "route", errors.New("provider unavailable"))
	}
	return s.route, nil
}

func (s *scriptedRoutes) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func ptr[T any](v T) *T { return &v }

func truck(id int64, at domain.Point, kmPerUnit float64) *domain.Vehicle {
	return &domain.Vehicle{
		ID:            id,
		Plate:         fmt.Sprintf("TRK%03d", id),
		Category:      domain.CategoryTruck,
		CapacityKg:    5000,
		State:         domain.VehicleAvailable,
		RouteState:    domain.RouteAvailable,
		DriverID:      ptr(100 + id),
		Location:      &at,
		KmPerFuelUnit: kmPerUnit,
		Version:       1,
	}
}

func north(p domain.Point, deg float64) domain.Point {
	return domain.Point{Lat: p.Lat + deg, Lon: p.Lon}
}
