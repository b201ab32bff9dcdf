package repositories

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoSeed = `
points_of_sale:
  - {id: 1, name: Bodega Norte, lat: 4.60, lon: -74.08}
destinations:
  - {id: 1, city: Medellin, lat: 6.24, lon: -75.58}
vehicles:
  - {id: 1, plate: ABC123, category: truck, capacity_kg: 1000, driver_id: 7, lat: 4.61, lon: -74.07}
  - {id: 2, plate: XYZ987, category: car, capacity_kg: 300}
shipments:
  - {id: 1, point_of_sale_id: 1, weight_kg: 500, destination: Medellin}
toll_stations:
  - id: 1
    name: Peaje Siberia
    lat: 4.75
    lon: -74.15
    prices: {1: "11200", 3: "N/A"}
`

func TestParseSeed(t *testing.T) {
	s, err := ParseSeed(strings.NewReader(demoSeed))
	require.NoError(t, err)

	require.Len(t, s.PointsOfSale, 1)
	require.Len(t, s.Vehicles, 2)
	require.NotNil(t, s.Vehicles[0].DriverID)
	assert.EqualValues(t, 7, *s.Vehicles[0].DriverID)
	assert.Nil(t, s.Vehicles[1].Lat)
	assert.Equal(t, "N/A", s.TollStations[0].Prices[3])
	assert.Equal(t, "Medellin", s.Shipments[0].Destination)
}

func TestParseSeedRejectsInvalidRows(t *testing.T) {
	cases := map[string]string{
		"unknown field":      "vehicles:\n  - {id: 1, plate: A, colour: red}\n",
		"half coordinates":   "vehicles:\n  - {id: 1, plate: A, lat: 4.6}\n",
		"bad category":       "toll_stations:\n  - {id: 1, name: P, lat: 1, lon: 1, prices: {7: \"100\"}}\n",
		"empty destination":  "shipments:\n  - {id: 1, point_of_sale_id: 1, destination: \" \"}\n",
		"latitude off range": "destinations:\n  - {id: 1, city: X, lat: 123, lon: 0}\n",
		"negative weight":    "shipments:\n  - {id: 1, point_of_sale_id: 1, weight_kg: -3, destination: X}\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSeedEmptyDocument(t *testing.T) {
	s, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s.Vehicles)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
