package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

func coordPlace(name string, lat, lng float64) model.Place {
	return model.Place{
		Name:        name,
		Coordinates: model.Coordinates{Lat: &lat, Lng: &lng},
	}
}

func TestFilterWithinRadius(t *testing.T) {
	center := struct{ lat, lng float64 }{31.2001, 29.9187} // Alexandria

	near := coordPlace("near", 31.2050, 29.9200)   // well under 5km
	far := coordPlace("far", 31.5000, 30.5000)     // dozens of km away
	noCoords := model.Place{Name: "unlocated"}

	out := FilterWithinRadius([]model.Place{near, far, noCoords}, center.lat, center.lng, 5)

	names := make([]string, 0, len(out))
	for _, p := range out {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"near", "unlocated"}, names)
}

func TestFilterWithinRadiusKeepsAllInside(t *testing.T) {
	places := []model.Place{
		coordPlace("a", 31.2001, 29.9187),
		coordPlace("b", 31.2010, 29.9190),
	}
	out := FilterWithinRadius(places, 31.2001, 29.9187, 1)
	assert.Len(t, out, 2)
}
