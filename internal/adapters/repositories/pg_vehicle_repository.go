package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/obs"
	"dispatch-cost-service/internal/ports"
)

const vehicleColumns = `
	id, plate, category, capacity_kg, state, route_state,
	driver_id, lat, lon, km_per_fuel_unit, toll_category, version
`

// PgVehicleRepository reads vehicles and performs the optimistic assignment check.
type PgVehicleRepository struct{ DB *sql.DB }

func NewPgVehicleRepository(db *sql.DB) *PgVehicleRepository {
	return &PgVehicleRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var (
		v         domain.Vehicle
		driverID  sql.NullInt64
		lat, lon  sql.NullFloat64
		kmPerUnit sql.NullFloat64
		tollCat   sql.NullInt32
	)
	if err := row.Scan(&v.ID, &v.Plate, &v.Category, &v.CapacityKg, &v.State, &v.RouteState,
		&driverID, &lat, &lon, &kmPerUnit, &tollCat, &v.Version); err != nil {
		return nil, err
	}

	if driverID.Valid {
		id := driverID.Int64
		v.DriverID = &id
	}
	v.Location = nullPoint(lat, lon)
	if kmPerUnit.Valid {
		v.KmPerFuelUnit = kmPerUnit.Float64
	}
	if tollCat.Valid {
		v.TollCategory = int(tollCat.Int32)
	}
	return &v, nil
}

func (r *PgVehicleRepository) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if r.DB == nil {
		return nil, errors.New("vehicle repository: DB is nil")
	}

	q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1;`
	v, err := scanVehicle(r.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get vehicle id=%d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle id=%d: %w", id, err)
	}
	return v, nil
}

func (r *PgVehicleRepository) ListEligibleVehicles(ctx context.Context) (_ []*domain.Vehicle, err error) {
	defer obs.Time(ctx, "vehicles.ListEligible")(&err)

	if r.DB == nil {
		return nil, errors.New("vehicle repository: DB is nil")
	}

	q := `
	SELECT ` + vehicleColumns + `
	FROM vehicles
	WHERE category = $1
		AND state = $2
		AND route_state = $3
		AND driver_id IS NOT NULL
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, q, domain.CategoryTruck, domain.VehicleAvailable, domain.RouteAvailable)
	if err != nil {
		return nil, fmt.Errorf("list eligible vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Vehicle, 0, 32)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("list eligible vehicles: scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list eligible vehicles: row iteration: %w", err)
	}
	return out, nil
}

// ConfirmAssignment moves the vehicle to in_use and the shipment to in_transit
// in one transaction. The vehicle update only matches when its version equals
// vehicleVersion and it is still eligible, so of several concurrent
// confirmations for the same vehicle at most one commits.
func (r *PgVehicleRepository) ConfirmAssignment(
	ctx context.Context,
	shipmentID int64,
	vehicleID int64,
	vehicleVersion int64,
) (_ *domain.Vehicle, err error) {
	defer obs.Time(ctx, "vehicles.ConfirmAssignment")(&err)

	if r.DB == nil {
		return nil, errors.New("vehicle repository: DB is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("confirm assignment: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `
	UPDATE vehicles
	SET state = $3, version = version + 1, updated_at = now()
	WHERE id = $1
		AND version = $2
		AND category = $4
		AND state = $5
		AND route_state = $6
		AND driver_id IS NOT NULL
	RETURNING ` + vehicleColumns + `;
	`
	v, err := scanVehicle(tx.QueryRowContext(ctx, q, vehicleID, vehicleVersion,
		domain.VehicleInUse, domain.CategoryTruck, domain.VehicleAvailable, domain.RouteAvailable))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1);`, vehicleID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("confirm assignment: check vehicle id=%d: %w", vehicleID, err)
		}
		if !exists {
			return nil, fmt.Errorf("confirm assignment: vehicle id=%d: %w", vehicleID, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("confirm assignment: vehicle id=%d version=%d changed or not available: %w",
			vehicleID, vehicleVersion, ports.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("confirm assignment: update vehicle id=%d: %w", vehicleID, err)
	}

	res, err := tx.ExecContext(ctx, `
	UPDATE shipments
	SET state = $2
	WHERE id = $1
		AND state = $3;
	`, shipmentID, domain.ShipmentInTransit, domain.ShipmentPending)
	if err != nil {
		return nil, fmt.Errorf("confirm assignment: update shipment id=%d: %w", shipmentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("confirm assignment: rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("confirm assignment: shipment id=%d is not pending: %w", shipmentID, ports.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("confirm assignment: commit tx: %w", err)
	}
	return v, nil
}
