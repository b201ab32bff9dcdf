package domain

import (
	"math"
	"strconv"
	"strings"
)

const (
	MinTollCategory = 1
	MaxTollCategory = 5
)

// TollStation is a catalog entry. Prices holds the raw published value per
// category (1..5) exactly as stored; some sources publish text such as "N/A".
type TollStation struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Sector   string         `json:"sector,omitempty"`
	Operator string         `json:"operator,omitempty"`
	Location Point          `json:"location"`
	Prices   map[int]string `json:"prices,omitempty"`
}

// PriceFor returns the price for category, or 0 when it is missing,
// non-numeric or negative.
func (t *TollStation) PriceFor(category int) float64 {
	raw, ok := t.Prices[category]
	if !ok {
		return 0
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func ValidTollCategory(c int) bool { return c >= MinTollCategory && c <= MaxTollCategory }

// MatchedToll is a station attributed to a route and the price charged for it.
type MatchedToll struct {
	StationID      int64   `json:"station_id"`
	Name           string  `json:"name"`
	Sector         string  `json:"sector,omitempty"`
	Operator       string  `json:"operator,omitempty"`
	Location       Point   `json:"location"`
	Price          float64 `json:"price"`
	DistanceMeters float64 `json:"distance_meters"`
}

// TollQuote is the toll attribution of one route for one vehicle category.
type TollQuote struct {
	Category  int           `json:"category"`
	TotalCost float64       `json:"total_cost"`
	Stations  []MatchedToll `json:"stations"`
}
