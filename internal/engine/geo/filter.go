package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

// FilterWithinRadius removes places whose extracted coordinates fall
// outside radiusKm from the center. Places without coordinates are kept;
// the upstream tile already constrained where they were found.
func FilterWithinRadius(places []model.Place, centerLat, centerLng, radiusKm float64) []model.Place {
	center := orb.Point{centerLng, centerLat} // orb.Point is [lng, lat]

	var kept []model.Place
	for _, p := range places {
		if p.Coordinates.Lat == nil || p.Coordinates.Lng == nil {
			kept = append(kept, p)
			continue
		}
		pt := orb.Point{*p.Coordinates.Lng, *p.Coordinates.Lat}
		if orbgeo.Distance(center, pt) <= radiusKm*1000.0 {
			kept = append(kept, p)
		}
	}
	return kept
}
