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

// Postgres-backed implementation of ShipmentRepository and PointOfSaleRepository.
type PgShipmentRepository struct{ DB *sql.DB }

func NewPgShipmentRepository(db *sql.DB) *PgShipmentRepository {
	return &PgShipmentRepository{DB: db}
}

func (r *PgShipmentRepository) GetShipment(ctx context.Context, id int64) (_ *domain.Shipment, err error) {
	defer obs.Time(ctx, "shipments.Get")(&err)

	if r.DB == nil {
		return nil, errors.New("shipment repository: DB is nil")
	}

	q := `
	SELECT id, point_of_sale_id, weight_kg, destination, state
	FROM shipments
	WHERE id = $1;
	`
	var s domain.Shipment
	err = r.DB.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.PointOfSaleID, &s.WeightKg, &s.Destination, &s.State)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get shipment id=%d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment id=%d: %w", id, err)
	}
	return &s, nil
}

func (r *PgShipmentRepository) ListPendingShipments(ctx context.Context) (_ []*domain.Shipment, err error) {
	defer obs.Time(ctx, "shipments.ListPending")(&err)

	if r.DB == nil {
		return nil, errors.New("shipment repository: DB is nil")
	}

	q := `
	SELECT id, point_of_sale_id, weight_kg, destination, state
	FROM shipments
	WHERE state = $1
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, q, domain.ShipmentPending)
	if err != nil {
		return nil, fmt.Errorf("list pending shipments: query shipments table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Shipment, 0, 32)
	for rows.Next() {
		var s domain.Shipment
		if err := rows.Scan(&s.ID, &s.PointOfSaleID, &s.WeightKg, &s.Destination, &s.State); err != nil {
			return nil, fmt.Errorf("list pending shipments: scan row: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending shipments: row iteration: %w", err)
	}
	return out, nil
}

func (r *PgShipmentRepository) GetPointOfSale(ctx context.Context, id int64) (*domain.PointOfSale, error) {
	if r.DB == nil {
		return nil, errors.New("shipment repository: DB is nil")
	}

	q := `
	SELECT id, name, COALESCE(address, ''), lat, lon
	FROM points_of_sale
	WHERE id = $1;
	`
	var (
		p        domain.PointOfSale
		lat, lon sql.NullFloat64
	)
	err := r.DB.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Address, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get point of sale id=%d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get point of sale id=%d: %w", id, err)
	}

	p.Location = nullPoint(lat, lon)
	return &p, nil
}

func nullPoint(lat, lon sql.NullFloat64) *domain.Point {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &domain.Point{Lat: lat.Float64, Lon: lon.Float64}
}
