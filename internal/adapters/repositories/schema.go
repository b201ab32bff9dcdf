package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates every table the service reads or writes. It is idempotent.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`
	CREATE TABLE IF NOT EXISTS points_of_sale (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS destinations (
		id BIGSERIAL PRIMARY KEY,
		city TEXT NOT NULL UNIQUE,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		plate TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL CHECK (category IN ('truck', 'car')),
		capacity_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'available'
			CHECK (state IN ('available', 'in_use', 'maintenance', 'deactivated')),
		route_state TEXT NOT NULL DEFAULT 'available'
			CHECK (route_state IN ('available', 'en_route', 'loading', 'maintenance')),
		driver_id BIGINT,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		km_per_fuel_unit DOUBLE PRECISION,
		toll_category INTEGER CHECK (toll_category BETWEEN 1 AND 5),
		version BIGINT NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS shipments (
		id BIGSERIAL PRIMARY KEY,
		point_of_sale_id BIGINT NOT NULL REFERENCES points_of_sale(id),
		weight_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
		destination TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending'
			CHECK (state IN ('pending', 'in_transit', 'delivered', 'cancelled'))
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS toll_stations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		sector TEXT,
		operator TEXT,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		price_cat1 TEXT,
		price_cat2 TEXT,
		price_cat3 TEXT,
		price_cat4 TEXT,
		price_cat5 TEXT
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS calculation_records (
		id UUID PRIMARY KEY,
		shipment_id BIGINT NOT NULL,
		vehicle_id BIGINT NOT NULL,
		driver_id BIGINT,
		distance_km DOUBLE PRECISION NOT NULL CHECK (distance_km >= 0),
		duration_minutes DOUBLE PRECISION NOT NULL CHECK (duration_minutes >= 0),
		fuel_units DOUBLE PRECISION NOT NULL CHECK (fuel_units >= 0),
		fuel_cost DOUBLE PRECISION NOT NULL CHECK (fuel_cost >= 0),
		toll_cost DOUBLE PRECISION NOT NULL CHECK (toll_cost >= 0),
		total_cost DOUBLE PRECISION NOT NULL CHECK (total_cost >= 0),
		cost_per_weight DOUBLE PRECISION NOT NULL CHECK (cost_per_weight >= 0),
		fuel_price_per_unit DOUBLE PRECISION NOT NULL,
		fuel_km_per_unit DOUBLE PRECISION NOT NULL,
		toll_category INTEGER NOT NULL,
		origin_lat DOUBLE PRECISION NOT NULL,
		origin_lon DOUBLE PRECISION NOT NULL,
		destination_lat DOUBLE PRECISION NOT NULL,
		destination_lon DOUBLE PRECISION NOT NULL,
		geometry JSONB NOT NULL,
		state TEXT NOT NULL DEFAULT 'calculated',
		created_at TIMESTAMPTZ NOT NULL
	);
	`,
		`
	CREATE TABLE IF NOT EXISTS route_cache (
		cache_key TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);
	`,
		`CREATE INDEX IF NOT EXISTS idx_toll_stations_lat_lon ON toll_stations(lat, lon);`,
		`CREATE INDEX IF NOT EXISTS idx_calculation_records_shipment ON calculation_records(shipment_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_state ON shipments(state);`,
		`CREATE INDEX IF NOT EXISTS idx_route_cache_expires ON route_cache(expires_at);`,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
