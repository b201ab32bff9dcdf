package services

import (
	"context"
	"errors"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/obs"
	"dispatch-cost-service/internal/ports"

	"go.uber.org/zap"
)

// ConfirmRequest commits a proposal. VehicleVersion is the version the caller
// saw when the proposal was made.
type ConfirmRequest struct {
	ShipmentID     int64
	VehicleID      int64
	VehicleVersion int64
}

// Dispatcher turns a calculated proposal into an assignment.
type Dispatcher struct {
	records ports.CalculationStore
	store   ports.AssignmentStore
}

func NewDispatcher(records ports.CalculationStore, store ports.AssignmentStore) *Dispatcher {
	return &Dispatcher{records: records, store: store}
}

// Confirm assigns the vehicle to the shipment if the pair was calculated and
// neither side changed since. A stale version or a shipment that is no longer
// pending yields a conflict; of several concurrent confirmations of the same
// vehicle version at most one succeeds.
func (d *Dispatcher) Confirm(ctx context.Context, req ConfirmRequest) (_ *domain.Vehicle, err error) {
	const op = "confirm assignment"
	defer obs.Time(ctx, "dispatcher.Confirm")(&err)

	records, err := d.records.ListCalculations(ctx, req.ShipmentID)
	if err != nil {
		return nil, domain.Wrap(domain.KindComputation, op, err)
	}
	calculated := false
	for _, r := range records {
		if r.VehicleID == req.VehicleID {
			calculated = true
			break
		}
	}
	if !calculated {
		return nil, domain.Errorf(domain.KindValidation, op,
			"no calculation for shipment %d and vehicle %d", req.ShipmentID, req.VehicleID)
	}

	v, err := d.store.ConfirmAssignment(ctx, req.ShipmentID, req.VehicleID, req.VehicleVersion)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return nil, domain.Errorf(domain.KindNotFound, op, "shipment %d or vehicle %d not found", req.ShipmentID, req.VehicleID)
	case errors.Is(err, ports.ErrConflict):
		return nil, &domain.Error{
			Kind: domain.KindConflict,
			Op:   op,
			Msg:  "vehicle or shipment changed since the proposal was made",
			Err:  err,
		}
	case err != nil:
		return nil, domain.Wrap(domain.KindComputation, op, err)
	}

	obs.L(ctx).Info("assignment confirmed",
		zap.Int64("shipment_id", req.ShipmentID),
		zap.Int64("vehicle_id", v.ID),
		zap.Int64("vehicle_version", v.Version),
	)
	return v, nil
}
