package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/platform/obs"
)

// PgTollCatalog answers bounding-box queries over toll_stations.
type PgTollCatalog struct{ DB *sql.DB }

func NewPgTollCatalog(db *sql.DB) *PgTollCatalog {
	return &PgTollCatalog{DB: db}
}

func (c *PgTollCatalog) StationsInBox(
	ctx context.Context,
	box domain.BoundingBox,
	limit int,
) (_ []domain.TollStation, err error) {
	defer obs.Time(ctx, "tolls.StationsInBox")(&err)

	if c.DB == nil {
		return nil, errors.New("toll catalog: DB is nil")
	}
	if limit <= 0 {
		return []domain.TollStation{}, nil
	}

	q := `
	SELECT id, name, COALESCE(sector, ''), COALESCE(operator, ''), lat, lon,
		price_cat1, price_cat2, price_cat3, price_cat4, price_cat5
	FROM toll_stations
	WHERE lat BETWEEN $1 AND $2
		AND lon BETWEEN $3 AND $4
	ORDER BY id
	LIMIT $5;
	`
	rows, err := c.DB.QueryContext(ctx, q, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, limit)
	if err != nil {
		return nil, fmt.Errorf("stations in box: query toll_stations table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TollStation, 0, limit)
	for rows.Next() {
		var (
			st     domain.TollStation
			prices [domain.MaxTollCategory]sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.Name, &st.Sector, &st.Operator, &st.Location.Lat, &st.Location.Lon,
			&prices[0], &prices[1], &prices[2], &prices[3], &prices[4]); err != nil {
			return nil, fmt.Errorf("stations in box: scan row: %w", err)
		}

		st.Prices = make(map[int]string, len(prices))
		for i, p := range prices {
			if p.Valid {
				st.Prices[i+1] = p.String
			}
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stations in box: row iteration: %w", err)
	}
	return out, nil
}
