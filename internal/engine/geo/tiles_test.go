package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileAtRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		lat, lng float64
		zoom     int
	}{
		{"alexandria", 31.1276832, 29.9064321, 13},
		{"new york", 40.7128, -74.0060, 12},
		{"santiago", -33.4489, -70.6693, 15},
		{"greenwich", 51.4769, 0.0, 10},
		{"southern hemisphere", -41.2865, 174.7762, 14},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, y := TileAt(tc.lat, tc.lng, tc.zoom)
			lat, lng := TileCenter(x, y, tc.zoom)

			// Center of the same tile maps back to the same tile
			x2, y2 := TileAt(lat, lng, tc.zoom)
			assert.Equal(t, x, x2)
			assert.Equal(t, y, y2)

			// Inverse is bounded by one tile's angular span
			tileSpanLng := 360.0 / math.Pow(2, float64(tc.zoom))
			assert.InDelta(t, tc.lng, lng, tileSpanLng)
			assert.InDelta(t, tc.lat, lat, tileSpanLng*2)
		})
	}
}

func TestTileRadius(t *testing.T) {
	// 40075017 / 2^14 ≈ 2446m per tile; 5km needs ceil(5000/2446) = 3
	assert.Equal(t, 3, TileRadius(14, 5))

	// Deterministic across calls
	assert.Equal(t, TileRadius(14, 5), TileRadius(14, 5))
}

func TestTileRadiusFloorsAtOne(t *testing.T) {
	// At zoom 1 a tile spans ~20000km; any sane radius still yields 1
	assert.Equal(t, 1, TileRadius(1, 5))
	assert.Equal(t, 1, TileRadius(10, 0.001))
}

func TestGenerateTileGrid(t *testing.T) {
	grid := GenerateTileGrid(31.1276832, 29.9064321, 14, 5)

	r := TileRadius(14, 5)
	require.Len(t, grid, (2*r+1)*(2*r+1))

	centerX, centerY := TileAt(31.1276832, 29.9064321, 14)

	// First tile is the center tile
	assert.Equal(t, centerX, grid[0].X)
	assert.Equal(t, centerY, grid[0].Y)

	// Nearest-first: Manhattan distances never decrease
	prev := 0
	for _, tile := range grid {
		d := absInt(tile.X-centerX) + absInt(tile.Y-centerY)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}

	// Every tile carries its own geographic center
	for _, tile := range grid {
		lat, lng := TileCenter(tile.X, tile.Y, tile.Zoom)
		assert.Equal(t, lat, tile.Lat)
		assert.Equal(t, lng, tile.Lng)
	}
}

func TestTileCoverage(t *testing.T) {
	cov := TileCoverage(14, 5)

	assert.Equal(t, 14, cov.Zoom)
	assert.Equal(t, 3, cov.TileRadius)
	assert.Equal(t, 49, cov.TotalTiles)
	assert.InDelta(t, 2445.99, cov.MetersPerTileSide, 0.5)
	assert.Greater(t, cov.CoverageAreaKm2, 0.0)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
