package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/obs"
)

// PgCalculationStore is the append-only store of calculation records.
type PgCalculationStore struct{ DB *sql.DB }

func NewPgCalculationStore(db *sql.DB) *PgCalculationStore {
	return &PgCalculationStore{DB: db}
}

func (s *PgCalculationStore) SaveCalculation(ctx context.Context, rec *domain.CalculationRecord) (err error) {
	defer obs.Time(ctx, "calculations.Save")(&err)

	if s.DB == nil {
		return errors.New("calculation store: DB is nil")
	}
	if rec == nil || rec.ID == "" {
		return errors.New("save calculation: record id must not be empty")
	}

	geometry, err := json.Marshal(rec.Geometry)
	if err != nil {
		return fmt.Errorf("save calculation id=%s: encode geometry: %w", rec.ID, err)
	}

	q := `
	INSERT INTO calculation_records (
		id, shipment_id, vehicle_id, driver_id,
		distance_km, duration_minutes,
		fuel_units, fuel_cost, toll_cost, total_cost, cost_per_weight,
		fuel_price_per_unit, fuel_km_per_unit, toll_category,
		origin_lat, origin_lon, destination_lat, destination_lon,
		geometry, state, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`
	_, err = s.DB.ExecContext(ctx, q,
		rec.ID, rec.ShipmentID, rec.VehicleID, rec.DriverID,
		rec.DistanceKm, rec.DurationMinutes,
		rec.Cost.FuelUnits, rec.Cost.FuelCost, rec.Cost.TollCost, rec.Cost.Total, rec.Cost.CostPerWeight,
		rec.Fuel.PricePerUnit, rec.Fuel.KmPerUnit, rec.TollCategory,
		rec.Origin.Lat, rec.Origin.Lon, rec.Destination.Lat, rec.Destination.Lon,
		geometry, rec.State, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save calculation id=%s: %w", rec.ID, err)
	}
	return nil
}

func (s *PgCalculationStore) ListCalculations(ctx context.Context, shipmentID int64) (_ []*domain.CalculationRecord, err error) {
	defer obs.Time(ctx, "calculations.List")(&err)

	if s.DB == nil {
		return nil, errors.New("calculation store: DB is nil")
	}

	q := `
	SELECT id, shipment_id, vehicle_id, driver_id,
		distance_km, duration_minutes,
		fuel_units, fuel_cost, toll_cost, total_cost, cost_per_weight,
		fuel_price_per_unit, fuel_km_per_unit, toll_category,
		origin_lat, origin_lon, destination_lat, destination_lon,
		geometry, state, created_at
	FROM calculation_records
	WHERE shipment_id = $1
	ORDER BY created_at, id;
	`
	rows, err := s.DB.QueryContext(ctx, q, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list calculations shipment=%d: query: %w", shipmentID, err)
	}
	defer rows.Close()

	out := make([]*domain.CalculationRecord, 0, 8)
	for rows.Next() {
		var (
			rec      domain.CalculationRecord
			driverID sql.NullInt64
			geometry []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.ShipmentID, &rec.VehicleID, &driverID,
			&rec.DistanceKm, &rec.DurationMinutes,
			&rec.Cost.FuelUnits, &rec.Cost.FuelCost, &rec.Cost.TollCost, &rec.Cost.Total, &rec.Cost.CostPerWeight,
			&rec.Fuel.PricePerUnit, &rec.Fuel.KmPerUnit, &rec.TollCategory,
			&rec.Origin.Lat, &rec.Origin.Lon, &rec.Destination.Lat, &rec.Destination.Lon,
			&geometry, &rec.State, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("list calculations shipment=%d: scan row: %w", shipmentID, err)
		}

		if driverID.Valid {
			id := driverID.Int64
			rec.DriverID = &id
		}
		if err := json.Unmarshal(geometry, &rec.Geometry); err != nil {
			return nil, fmt.Errorf("list calculations shipment=%d: decode geometry id=%s: %w", shipmentID, rec.ID, err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list calculations shipment=%d: row iteration: %w", shipmentID, err)
	}
	return out, nil
}
