package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dispatch-cost-service/internal/domain"
	"dispatch-cost-service/internal/ports"
)

// PgDestinationCatalog resolves free-text destinations to coordinates.
type PgDestinationCatalog struct{ DB *sql.DB }

func NewPgDestinationCatalog(db *sql.DB) *PgDestinationCatalog {
	return &PgDestinationCatalog{DB: db}
}

func (c *PgDestinationCatalog) FindExact(ctx context.Context, city string) (*domain.Destination, error) {
	return c.findOne(ctx, "find destination", `
	SELECT id, city, lat, lon
	FROM destinations
	WHERE city = $1
	ORDER BY id
	LIMIT 1;
	`, domain.NormalizeCity(city))
}

func (c *PgDestinationCatalog) FindPartial(ctx context.Context, city string) (*domain.Destination, error) {
	city = domain.NormalizeCity(city)
	if city == "" {
		return nil, fmt.Errorf("find destination like %q: %w", city, ports.ErrNotFound)
	}
	return c.findOne(ctx, "find destination like", `
	SELECT id, city, lat, lon
	FROM destinations
	WHERE city ILIKE '%' || $1 || '%' ESCAPE '\'
	ORDER BY id
	LIMIT 1;
	`, escapeLike(city))
}

func (c *PgDestinationCatalog) findOne(ctx context.Context, op, q, arg string) (*domain.Destination, error) {
	if c.DB == nil {
		return nil, errors.New("destination catalog: DB is nil")
	}

	var d domain.Destination
	err := c.DB.QueryRowContext(ctx, q, arg).Scan(&d.ID, &d.City, &d.Location.Lat, &d.Location.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", op, arg, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", op, arg, err)
	}
	return &d, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
