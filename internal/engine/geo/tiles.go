package geo

import (
	"math"
	"sort"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

// earthCircumferenceMeters is the equatorial circumference used by the
// standard tile grid: meters per tile side = circumference / 2^zoom.
const earthCircumferenceMeters = 40075017.0

// TileAt converts a geographic point to its Web-Mercator tile index.
func TileAt(lat, lng float64, zoom int) (x, y int) {
	latRad := lat * math.Pi / 180.0
	n := math.Pow(2, float64(zoom))
	x = int((lng + 180.0) / 360.0 * n)
	y = int((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n)
	return x, y
}

// TileCenter converts a tile index back to the lat/lng of its
// geometric center.
func TileCenter(x, y, zoom int) (lat, lng float64) {
	n := math.Pow(2, float64(zoom))
	lng = (float64(x)+0.5)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*(float64(y)+0.5)/n)))
	lat = latRad * 180.0 / math.Pi
	return lat, lng
}

// MetersPerTileSide returns the side length of one tile at the given zoom.
func MetersPerTileSide(zoom int) float64 {
	return earthCircumferenceMeters / math.Pow(2, float64(zoom))
}

// TileRadius returns how many tiles are needed in each direction to
// cover radiusKm at the given zoom. Never less than 1.
func TileRadius(zoom int, radiusKm float64) int {
	tiles := int(math.Ceil(radiusKm * 1000.0 / MetersPerTileSide(zoom)))
	if tiles < 1 {
		return 1
	}
	return tiles
}

// CoverageStats describes the tile grid a sweep will walk at one zoom level.
type CoverageStats struct {
	Zoom              int
	MetersPerTileSide float64
	TileRadius        int
	TotalTiles        int
	CoverageAreaKm2   float64
}

// TileCoverage computes grid statistics for a zoom level and radius.
func TileCoverage(zoom int, radiusKm float64) CoverageStats {
	side := MetersPerTileSide(zoom)
	r := TileRadius(zoom, radiusKm)
	total := (2*r + 1) * (2*r + 1)
	sideKm := side / 1000.0
	return CoverageStats{
		Zoom:              zoom,
		MetersPerTileSide: side,
		TileRadius:        r,
		TotalTiles:        total,
		CoverageAreaKm2:   float64(total) * sideKm * sideKm,
	}
}

// GenerateTileGrid produces the (2r+1)^2 tiles around the center point,
// each carrying its geographic center, sorted by ascending Manhattan
// distance from the center tile so the sweep works inside-out.
func GenerateTileGrid(centerLat, centerLng float64, zoom int, radiusKm float64) []model.Tile {
	centerX, centerY := TileAt(centerLat, centerLng, zoom)
	r := TileRadius(zoom, radiusKm)

	tiles := make([]model.Tile, 0, (2*r+1)*(2*r+1))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			x, y := centerX+dx, centerY+dy
			lat, lng := TileCenter(x, y, zoom)
			tiles = append(tiles, model.Tile{X: x, Y: y, Zoom: zoom, Lat: lat, Lng: lng})
		}
	}

	sort.SliceStable(tiles, func(i, j int) bool {
		di := abs(tiles[i].X-centerX) + abs(tiles[i].Y-centerY)
		dj := abs(tiles[j].X-centerX) + abs(tiles[j].Y-centerY)
		return di < dj
	})

	return tiles
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
