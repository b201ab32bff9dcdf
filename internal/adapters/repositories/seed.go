package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"dispatch-cost-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML layout accepted by SeedFromYAML.
type Seed struct {
	PointsOfSale []PointOfSaleSeed `yaml:"points_of_sale"`
	Destinations []DestinationSeed `yaml:"destinations"`
	Vehicles     []VehicleSeed     `yaml:"vehicles"`
	Shipments    []ShipmentSeed    `yaml:"shipments"`
	TollStations []TollStationSeed `yaml:"toll_stations"`
}

type PointOfSaleSeed struct {
	ID      int64    `yaml:"id"`
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Lat     *float64 `yaml:"lat"`
	Lon     *float64 `yaml:"lon"`
}

type DestinationSeed struct {
	ID   int64   `yaml:"id"`
	City string  `yaml:"city"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type VehicleSeed struct {
	ID            int64    `yaml:"id"`
	Plate         string   `yaml:"plate"`
	Category      string   `yaml:"category"`
	CapacityKg    float64  `yaml:"capacity_kg"`
	State         string   `yaml:"state"`
	RouteState    string   `yaml:"route_state"`
	DriverID      *int64   `yaml:"driver_id"`
	Lat           *float64 `yaml:"lat"`
	Lon           *float64 `yaml:"lon"`
	KmPerFuelUnit *float64 `yaml:"km_per_fuel_unit"`
	TollCategory  *int     `yaml:"toll_category"`
}

type ShipmentSeed struct {
	ID            int64   `yaml:"id"`
	PointOfSaleID int64   `yaml:"point_of_sale_id"`
	WeightKg      float64 `yaml:"weight_kg"`
	Destination   string  `yaml:"destination"`
	State         string  `yaml:"state"`
}

type TollStationSeed struct {
	ID       int64          `yaml:"id"`
	Name     string         `yaml:"name"`
	Sector   string         `yaml:"sector"`
	Operator string         `yaml:"operator"`
	Lat      float64        `yaml:"lat"`
	Lon      float64        `yaml:"lon"`
	Prices   map[int]string `yaml:"prices"`
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

func (s *Seed) validate() error {
	for i, p := range s.PointsOfSale {
		if p.ID <= 0 || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("points_of_sale #%d: id and name are required", i+1)
		}
		if (p.Lat == nil) != (p.Lon == nil) {
			return fmt.Errorf("points_of_sale #%d: lat and lon must be set together", i+1)
		}
		if p.Lat != nil {
			if err := (domain.Point{Lat: *p.Lat, Lon: *p.Lon}).Validate(); err != nil {
				return fmt.Errorf("points_of_sale #%d: %w", i+1, err)
			}
		}
	}
	for i, d := range s.Destinations {
		if d.ID <= 0 || strings.TrimSpace(d.City) == "" {
			return fmt.Errorf("destinations #%d: id and city are required", i+1)
		}
		if err := (domain.Point{Lat: d.Lat, Lon: d.Lon}).Validate(); err != nil {
			return fmt.Errorf("destinations #%d: %w", i+1, err)
		}
	}
	for i, v := range s.Vehicles {
		if v.ID <= 0 || strings.TrimSpace(v.Plate) == "" {
			return fmt.Errorf("vehicles #%d: id and plate are required", i+1)
		}
		if v.CapacityKg < 0 {
			return fmt.Errorf("vehicles #%d: capacity_kg must be >= 0", i+1)
		}
		if (v.Lat == nil) != (v.Lon == nil) {
			return fmt.Errorf("vehicles #%d: lat and lon must be set together", i+1)
		}
		if v.TollCategory != nil && !domain.ValidTollCategory(*v.TollCategory) {
			return fmt.Errorf("vehicles #%d: toll_category must be 1..5", i+1)
		}
	}
	for i, sh := range s.Shipments {
		if sh.ID <= 0 || sh.PointOfSaleID <= 0 {
			return fmt.Errorf("shipments #%d: id and point_of_sale_id are required", i+1)
		}
		if sh.WeightKg < 0 {
			return fmt.Errorf("shipments #%d: weight_kg must be >= 0", i+1)
		}
		if strings.TrimSpace(sh.Destination) == "" {
			return fmt.Errorf("shipments #%d: destination cannot be empty", i+1)
		}
	}
	for i, t := range s.TollStations {
		if t.ID <= 0 || strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("toll_stations #%d: id and name are required", i+1)
		}
		for c := range t.Prices {
			if !domain.ValidTollCategory(c) {
				return fmt.Errorf("toll_stations #%d: unknown price category %d", i+1, c)
			}
		}
	}
	return nil
}

// SeedFromYAML populates the database from a YAML file. Rows are upserted by id.
func SeedFromYAML(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("seed: open %q: %w", path, err)
	}
	defer f.Close()

	s, err := ParseSeed(f)
	if err != nil {
		return fmt.Errorf("seed %q: %w", path, err)
	}
	return Apply(ctx, db, s)
}

// Apply writes a parsed seed in a single transaction.
func Apply(ctx context.Context, db *sql.DB, s *Seed) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range s.PointsOfSale {
		if _, err := tx.ExecContext(ctx, `
	INSERT INTO points_of_sale (id, name, address, lat, lon)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, address = EXCLUDED.address,
		lat = EXCLUDED.lat, lon = EXCLUDED.lon;
	`, p.ID, p.Name, nullString(p.Address), p.Lat, p.Lon); err != nil {
			return fmt.Errorf("seed: insert point_of_sale id=%d: %w", p.ID, err)
		}
	}

	for _, d := range s.Destinations {
		if _, err := tx.ExecContext(ctx, `
	INSERT INTO destinations (id, city, lat, lon)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET city = EXCLUDED.city, lat = EXCLUDED.lat, lon = EXCLUDED.lon;
	`, d.ID, domain.NormalizeCity(d.City), d.Lat, d.Lon); err != nil {
			return fmt.Errorf("seed: insert destination id=%d: %w", d.ID, err)
		}
	}

	for _, v := range s.Vehicles {
		if _, err := tx.ExecContext(ctx, `
	INSERT INTO vehicles (id, plate, category, capacity_kg, state, route_state,
		driver_id, lat, lon, km_per_fuel_unit, toll_category)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE
	SET plate = EXCLUDED.plate, category = EXCLUDED.category,
		capacity_kg = EXCLUDED.capacity_kg, state = EXCLUDED.state,
		route_state = EXCLUDED.route_state, driver_id = EXCLUDED.driver_id,
		lat = EXCLUDED.lat, lon = EXCLUDED.lon,
		km_per_fuel_unit = EXCLUDED.km_per_fuel_unit,
		toll_category = EXCLUDED.toll_category,
		version = vehicles.version + 1,
		updated_at = now();
	`, v.ID, v.Plate, orDefault(v.Category, string(domain.CategoryTruck)), v.CapacityKg,
			orDefault(v.State, string(domain.VehicleAvailable)),
			orDefault(v.RouteState, string(domain.RouteAvailable)),
			v.DriverID, v.Lat, v.Lon, v.KmPerFuelUnit, v.TollCategory); err != nil {
			return fmt.Errorf("seed: insert vehicle id=%d: %w", v.ID, err)
		}
	}

	for _, sh := range s.Shipments {
		if _, err := tx.ExecContext(ctx, `
	INSERT INTO shipments (id, point_of_sale_id, weight_kg, destination, state)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET point_of_sale_id = EXCLUDED.point_of_sale_id, weight_kg = EXCLUDED.weight_kg,
		destination = EXCLUDED.destination, state = EXCLUDED.state;
	`, sh.ID, sh.PointOfSaleID, sh.WeightKg, strings.TrimSpace(sh.Destination),
			orDefault(sh.State, string(domain.ShipmentPending))); err != nil {
			return fmt.Errorf("seed: insert shipment id=%d: %w", sh.ID, err)
		}
	}

	for _, t := range s.TollStations {
		if _, err := tx.ExecContext(ctx, `
	INSERT INTO toll_stations (id, name, sector, operator, lat, lon,
		price_cat1, price_cat2, price_cat3, price_cat4, price_cat5)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, sector = EXCLUDED.sector, operator = EXCLUDED.operator,
		lat = EXCLUDED.lat, lon = EXCLUDED.lon,
		price_cat1 = EXCLUDED.price_cat1, price_cat2 = EXCLUDED.price_cat2,
		price_cat3 = EXCLUDED.price_cat3, price_cat4 = EXCLUDED.price_cat4,
		price_cat5 = EXCLUDED.price_cat5;
	`, t.ID, t.Name, nullString(t.Sector), nullString(t.Operator), t.Lat, t.Lon,
			priceArg(t.Prices, 1), priceArg(t.Prices, 2), priceArg(t.Prices, 3),
			priceArg(t.Prices, 4), priceArg(t.Prices, 5)); err != nil {
			return fmt.Errorf("seed: insert toll_station id=%d: %w", t.ID, err)
		}
	}

	// Explicit ids bypass the sequences; move them past the seeded rows.
	for _, table := range []string{"points_of_sale", "destinations", "vehicles", "shipments", "toll_stations"} {
		q := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 1));`,
			table,
		)
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("seed: reset %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func priceArg(prices map[int]string, category int) sql.NullString {
	v, ok := prices[category]
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
