package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/metrics"
	"dispatch-cost-service/internal/platform/obs"
	"dispatch-cost-service/internal/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EnginePolicy holds the tunable constants of candidate selection and costing.
type EnginePolicy struct {
	SearchRadiusKm float64
	MaxCandidates  int
	BulkWorkers    int
	Profile        string
	TollCategory   int
	Fuel           domain.FuelParams
}

func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		SearchRadiusKm: 50,
		MaxCandidates:  3,
		BulkWorkers:    4,
		Profile:        "car",
		TollCategory:   1,
		Fuel:           domain.FuelParams{PricePerUnit: 12000, KmPerUnit: 8},
	}
}

// EngineDeps are the collaborators of the engine. Now and NewID default to
// time.Now and random UUIDs.
type EngineDeps struct {
	Shipments    ports.ShipmentRepository
	PointsOfSale ports.PointOfSaleRepository
	Destinations ports.DestinationCatalog
	Vehicles     ports.VehicleRepository
	Routes       ports.RouteProvider
	Tolls        *TollFilter
	Records      ports.CalculationStore
	Metrics      *metrics.Metrics

	Now   func() time.Time
	NewID func() string
}

// AssignmentEngine proposes vehicles for shipments and prices each proposal.
// It never mutates vehicles or shipments; its only write is the append-only
// calculation record.
type AssignmentEngine struct {
	deps   EngineDeps
	policy EnginePolicy
}

var errRouteFailed = errors.New("route failed")

// leg is a resolved shipment: where it starts and where it goes.
type leg struct {
	shipment    *domain.Shipment
	origin      domain.Point
	destination domain.Destination
}

func NewAssignmentEngine(deps EngineDeps, policy EnginePolicy) (*AssignmentEngine, error) {
	switch {
	case deps.Shipments == nil, deps.PointsOfSale == nil, deps.Destinations == nil:
		return nil, errors.New("assignment engine: shipment, point of sale and destination lookups are required")
	case deps.Vehicles == nil, deps.Routes == nil, deps.Tolls == nil, deps.Records == nil:
		return nil, errors.New("assignment engine: vehicles, routes, tolls and records are required")
	}
	if policy.SearchRadiusKm <= 0 || policy.MaxCandidates < 1 || policy.BulkWorkers < 1 {
		return nil, fmt.Errorf("assignment engine: invalid policy %+v", policy)
	}
	if !domain.ValidTollCategory(policy.TollCategory) {
		return nil, fmt.Errorf("assignment engine: toll category must be 1..5, got %d", policy.TollCategory)
	}
	if err := policy.Fuel.Validate(); err != nil {
		return nil, fmt.Errorf("assignment engine: %w", err)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	return &AssignmentEngine{deps: deps, policy: policy}, nil
}

func (e *AssignmentEngine) Policy() EnginePolicy { return e.policy }

// Evaluate ranks the eligible vehicles around the shipment origin, prices the
// nearest MaxCandidates concurrently, persists one record per priced candidate
// and returns the proposals cheapest first.
func (e *AssignmentEngine) Evaluate(ctx context.Context, shipmentID int64) (_ *domain.Assessment, err error) {
	defer obs.Time(ctx, "engine.Evaluate")(&err)
	defer func() { e.deps.Metrics.ObserveEvaluation(outcomeLabel(err)) }()

	l, err := e.resolveLeg(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	vehicles, err := e.deps.Vehicles.ListEligibleVehicles(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "evaluate shipment", fmt.Errorf("list vehicles: %w", err))
	}

	candidates := e.nearbyCandidates(vehicles, l)
	if len(candidates) == 0 {
		return nil, &domain.Error{
			Kind: domain.KindNoCandidates,
			Op:   "evaluate shipment",
			Msg:  fmt.Sprintf("shipment %d: no eligible vehicle within %.0f km of the origin", shipmentID, e.policy.SearchRadiusKm),
			Err:  domain.ErrNoCandidates,
		}
	}
	if len(candidates) > e.policy.MaxCandidates {
		candidates = candidates[:e.policy.MaxCandidates]
	}

	proposals, skipped, err := e.priceCandidates(ctx, l, candidates)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return nil, &domain.Error{
			Kind: domain.KindExternalService,
			Op:   "evaluate shipment",
			Msg:  fmt.Sprintf("shipment %d: no route for any of %d candidates", shipmentID, len(candidates)),
			Err:  domain.ErrRouteUnavailable,
		}
	}

	slices.SortStableFunc(proposals, func(a, b domain.Proposal) int {
		switch {
		case a.Record.Cost.Total < b.Record.Cost.Total:
			return -1
		case a.Record.Cost.Total > b.Record.Cost.Total:
			return 1
		}
		return 0
	})
	proposals[0].Best = true

	return &domain.Assessment{
		ShipmentID:  shipmentID,
		Origin:      l.origin,
		Destination: l.destination,
		Evaluated:   len(candidates),
		Skipped:     skipped,
		Proposals:   proposals,
	}, nil
}

// nearbyCandidates keeps eligible vehicles inside the search radius, nearest
// first. Equal distances keep repository order.
func (e *AssignmentEngine) nearbyCandidates(vehicles []*domain.Vehicle, l *leg) []ScoredVehicle {
	out := make([]ScoredVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v == nil || !v.Eligible() || v.Location == nil {
			continue
		}
		d := domain.DistanceApprox(l.origin, *v.Location)
		if d > e.policy.SearchRadiusKm {
			continue
		}
		out = append(out, ScoredVehicle{
			Vehicle:    v,
			DistanceKm: d,
			Score:      ScoreVehicle(v, l.shipment.WeightKg, d),
		})
	}

	slices.SortStableFunc(out, func(a, b ScoredVehicle) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
	return out
}

// priceCandidates runs one goroutine per candidate. A candidate whose route
// cannot be obtained is skipped; any other failure cancels the rest.
func (e *AssignmentEngine) priceCandidates(
	ctx context.Context,
	l *leg,
	candidates []ScoredVehicle,
) ([]domain.Proposal, int, error) {
	results := make([]*domain.Proposal, len(candidates))
	var skipped atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(candidates))

	for i, c := range candidates {
		g.Go(func() error {
			rec, err := e.calculate(gctx, l, c.Vehicle)
			if err != nil {
				if errors.Is(err, errRouteFailed) && gctx.Err() == nil {
					obs.L(ctx).Warn("candidate skipped",
						zap.Int64("shipment_id", l.shipment.ID),
						zap.Int64("vehicle_id", c.Vehicle.ID),
						zap.Error(err),
					)
					e.deps.Metrics.ObserveSkip()
					skipped.Add(1)
					return nil
				}
				return err
			}

			results[i] = &domain.Proposal{
				Record:             rec,
				Vehicle:            c.Vehicle,
				DistanceToOriginKm: c.DistanceKm,
				Priority:           i + 1,
				Score:              c.Score,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("evaluate shipment %d: %w", l.shipment.ID, ctx.Err())
		}
		return nil, 0, err
	}

	proposals := make([]domain.Proposal, 0, len(results))
	for _, p := range results {
		if p != nil {
			proposals = append(proposals, *p)
		}
	}
	return proposals, int(skipped.Load()), nil
}

// calculate prices one (shipment, vehicle) pair and persists the record.
// Routing failures are marked with errRouteFailed.
func (e *AssignmentEngine) calculate(ctx context.Context, l *leg, v *domain.Vehicle) (*domain.CalculationRecord, error) {
	route, err := e.deps.Routes.GetRoute(ctx, l.origin, l.destination.Location, e.policy.Profile)
	if err != nil {
		return nil, fmt.Errorf("%w: vehicle %d: %w", errRouteFailed, v.ID, err)
	}

	category := e.policy.TollCategory
	if domain.ValidTollCategory(v.TollCategory) {
		category = v.TollCategory
	}
	fuel := e.policy.Fuel
	if v.KmPerFuelUnit > 0 && !math.IsInf(v.KmPerFuelUnit, 0) {
		fuel.KmPerUnit = v.KmPerFuelUnit
	}

	tolls, err := e.deps.Tolls.TollsNear(ctx, route.Points, category)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", v.ID, err)
	}

	cost, err := EstimateCost(route, tolls, fuel, l.shipment.WeightKg)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", v.ID, err)
	}

	rec := &domain.CalculationRecord{
		ID:              e.deps.NewID(),
		ShipmentID:      l.shipment.ID,
		VehicleID:       v.ID,
		DriverID:        v.DriverID,
		DistanceKm:      route.DistanceKm,
		DurationMinutes: route.DurationMinutes,
		Cost:            cost,
		Fuel:            fuel,
		TollCategory:    category,
		Origin:          l.origin,
		Destination:     l.destination.Location,
		Geometry:        domain.RouteGeometry{Points: route.Points, Tolls: tolls},
		State:           domain.CalculationCalculated,
		CreatedAt:       e.deps.Now().UTC(),
	}

	if err := e.deps.Records.SaveCalculation(ctx, rec); err != nil {
		return nil, domain.Wrap(domain.KindComputation, "save calculation", err)
	}
	return rec, nil
}

// Calculate prices an explicit (shipment, vehicle) pair. The vehicle must
// exist and have a driver; no other eligibility rule is applied.
func (e *AssignmentEngine) Calculate(ctx context.Context, shipmentID, vehicleID int64) (_ *domain.CalculationRecord, err error) {
	defer obs.Time(ctx, "engine.Calculate")(&err)

	l, err := e.resolveLeg(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	v, err := e.deps.Vehicles.GetVehicle(ctx, vehicleID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, "calculate", "vehicle %d not found", vehicleID)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "calculate", err)
	}
	if !v.HasDriver() {
		return nil, domain.Errorf(domain.KindValidation, "calculate", "vehicle %d has no driver assigned", vehicleID)
	}

	return e.calculate(ctx, l, v)
}

// ProcessPending evaluates every pending shipment on a bounded worker pool.
// Each shipment yields exactly one outcome, in the order they were listed;
// one shipment failing never stops the others.
func (e *AssignmentEngine) ProcessPending(ctx context.Context) (_ []domain.BulkOutcome, err error) {
	defer obs.Time(ctx, "engine.ProcessPending")(&err)

	shipments, err := e.deps.Shipments.ListPendingShipments(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "process pending", err)
	}

	outcomes := make([]domain.BulkOutcome, len(shipments))

	var g errgroup.Group
	g.SetLimit(e.policy.BulkWorkers)

	for i, s := range shipments {
		g.Go(func() error {
			outcomes[i] = e.processOne(ctx, s.ID)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func (e *AssignmentEngine) processOne(ctx context.Context, shipmentID int64) domain.BulkOutcome {
	out := domain.BulkOutcome{ShipmentID: shipmentID}
	log := obs.L(ctx).With(zap.Int64("shipment_id", shipmentID))

	var (
		a   *domain.Assessment
		err error
	)
	if err = ctx.Err(); err == nil {
		a, err = e.Evaluate(ctx, shipmentID)
	}
	if err != nil {
		out.Status = domain.OutcomeError
		out.Kind = domain.KindOf(err)
		out.Reason = err.Error()
		log.Warn("shipment not processed", zap.String("kind", string(out.Kind)), zap.Error(err))
		e.deps.Metrics.ObserveBulk(domain.OutcomeError)
		return out
	}

	out.Status = domain.OutcomeProcessed
	out.Best = a.Best()
	log.Info("shipment processed",
		zap.Int64("vehicle_id", out.Best.Vehicle.ID),
		zap.Float64("total_cost", out.Best.Record.Cost.Total),
	)
	e.deps.Metrics.ObserveBulk(domain.OutcomeProcessed)
	return out
}

// Report lists every stored calculation of a shipment and the cheapest one.
func (e *AssignmentEngine) Report(ctx context.Context, shipmentID int64) (*domain.ShipmentReport, error) {
	s, err := e.deps.Shipments.GetShipment(ctx, shipmentID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, "report", "shipment %d not found", shipmentID)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "report", err)
	}

	records, err := e.deps.Records.ListCalculations(ctx, shipmentID)
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "report", err)
	}

	rep := &domain.ShipmentReport{Shipment: s, Calculations: records}
	for _, r := range records {
		if rep.Cheapest == nil || r.Cost.Total < rep.Cheapest.Cost.Total {
			rep.Cheapest = r
		}
	}
	return rep, nil
}

// SimulationRequest prices an ad hoc trip without persisting anything.
type SimulationRequest struct {
	Origin       domain.Point
	Destination  domain.Point
	WeightKg     float64
	Profile      string
	TollCategory int
}

// Simulate prices a trip between two points and suggests the best-scoring
// eligible vehicle for it. An empty fleet is reported as a warning.
func (e *AssignmentEngine) Simulate(ctx context.Context, req SimulationRequest) (_ *domain.Simulation, err error) {
	defer obs.Time(ctx, "engine.Simulate")(&err)

	if err := req.Origin.Validate(); err != nil {
		return nil, err
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, err
	}
	if req.WeightKg < 0 || math.IsNaN(req.WeightKg) || math.IsInf(req.WeightKg, 0) {
		return nil, domain.Errorf(domain.KindValidation, "simulate", "weight must be a non-negative number, got %v", req.WeightKg)
	}

	profile := req.Profile
	if profile == "" {
		profile = e.policy.Profile
	}
	category := req.TollCategory
	if category == 0 {
		category = e.policy.TollCategory
	}

	route, err := e.deps.Routes.GetRoute(ctx, req.Origin, req.Destination, profile)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	tolls, err := e.deps.Tolls.TollsNear(ctx, route.Points, category)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	cost, err := EstimateCost(route, tolls, e.policy.Fuel, req.WeightKg)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	sim := &domain.Simulation{Route: route, Tolls: tolls, Cost: cost, Fuel: e.policy.Fuel}

	vehicles, err := e.deps.Vehicles.ListEligibleVehicles(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, "simulate", fmt.Errorf("list vehicles: %w", err))
	}
	sim.Evaluated = len(vehicles)

	best, ok := PickBest(RankVehicles(vehicles, req.WeightKg, req.Origin))
	if !ok {
		sim.Warning = "no vehicles available"
		return sim, nil
	}
	sim.Vehicle = best.Vehicle
	sim.VehicleScore = &best.Score
	sim.VehicleDistKm = best.DistanceKm
	return sim, nil
}

func (e *AssignmentEngine) resolveLeg(ctx context.Context, shipmentID int64) (*leg, error) {
	const op = "resolve shipment"

	s, err := e.deps.Shipments.GetShipment(ctx, shipmentID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, op, "shipment %d not found", shipmentID)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, op, err)
	}
	if s.WeightKg < 0 || math.IsNaN(s.WeightKg) || math.IsInf(s.WeightKg, 0) {
		return nil, domain.Errorf(domain.KindValidation, op, "shipment %d has invalid weight %v", shipmentID, s.WeightKg)
	}

	pos, err := e.deps.PointsOfSale.GetPointOfSale(ctx, s.PointOfSaleID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, op, "point of sale %d of shipment %d not found", s.PointOfSaleID, shipmentID)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, op, err)
	}
	if pos.Location == nil {
		return nil, &domain.Error{
			Kind: domain.KindValidation,
			Op:   op,
			Msg:  fmt.Sprintf("point of sale %d has no coordinates", pos.ID),
			Err:  domain.ErrNoCoordinates,
		}
	}
	if err := pos.Location.Validate(); err != nil {
		return nil, err
	}

	dest, err := e.resolveDestination(ctx, s.Destination)
	if err != nil {
		return nil, err
	}

	return &leg{shipment: s, origin: *pos.Location, destination: *dest}, nil
}

// resolveDestination tries an exact catalog match, then a substring match.
func (e *AssignmentEngine) resolveDestination(ctx context.Context, city string) (*domain.Destination, error) {
	const op = "resolve destination"

	d, err := e.deps.Destinations.FindExact(ctx, city)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, domain.Wrap(domain.KindComputation, op, err)
	}

	d, err = e.deps.Destinations.FindPartial(ctx, city)
	if errors.Is(err, ports.ErrNotFound) {
		// Bulk clients match failed outcomes on the "destino" prefix.
		return nil, domain.Errorf(domain.KindNotFound, op, "destino %q: no match in destination catalog", city)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, op, err)
	}
	return d, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
