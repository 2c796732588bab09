package model

import "fmt"

// Tile identifies a Web-Mercator map tile and carries the geographic
// center it maps back to, so callers never need to re-derive it.
type Tile struct {
	X    int
	Y    int
	Zoom int
	Lat  float64
	Lng  float64
}

// Coordinates holds an extracted place position. Either axis may be
// absent when the payload carried nothing usable.
type Coordinates struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

// ServiceFlags reports which service options a place advertises.
type ServiceFlags struct {
	DineIn   bool `json:"dine_in"`
	Takeaway bool `json:"takeaway"`
	Delivery bool `json:"delivery"`
}

// OpeningHours is the parsed open-now status line. Open is nil when the
// payload carried no recognizable status.
type OpeningHours struct {
	Open   *bool  `json:"open,omitempty"`
	Closes string `json:"closes,omitempty"`
}

// Place is one extracted place record. Name is the only required field;
// everything else is present only when it survived validation. Numeric
// fields outside their valid range are left absent, never clamped.
type Place struct {
	Name             string        `json:"name"`
	Rating           *float64      `json:"rating,omitempty"`
	ReviewsCount     *int          `json:"reviews_count,omitempty"`
	Address          string        `json:"address,omitempty"`
	Phones           []string      `json:"phones,omitempty"`
	Website          string        `json:"website,omitempty"`
	PriceRange       string        `json:"price_range,omitempty"`
	Cuisine          string        `json:"cuisine,omitempty"`
	Category         string        `json:"category,omitempty"`
	OpeningHours     *OpeningHours `json:"opening_hours,omitempty"`
	Services         ServiceFlags  `json:"services"`
	Coordinates      Coordinates   `json:"coordinates"`
	ReviewHighlights []string      `json:"review_highlights,omitempty"`
	Images           []string      `json:"images,omitempty"`
}

// Key is the dedupe identity used across tiles: name plus address.
// Places sighted from overlapping tiles collapse onto one record.
func (p *Place) Key() string {
	return p.Name + "_" + p.Address
}

// SearchParams holds all configuration for one search invocation.
type SearchParams struct {
	Lat        float64
	Lng        float64
	Zoom       int
	ZoomLevels []int // explicit zoom list; overrides the computed range
	Query      string
	MaxResults int
	Country    string // gl parameter (country code)
	RadiusKm   float64

	MinDelay   float64 // seconds
	MaxDelay   float64 // seconds
	MaxRetries int

	ProxyURL string
	Debug    bool

	// StrictRadius discards places whose extracted coordinates fall
	// outside RadiusKm from the search center.
	StrictRadius bool
}

// Validate rejects configurations that can never produce a meaningful
// sweep. This is the only fatal error class a search surfaces.
func (p *SearchParams) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %.6f out of range [-180, 180]", p.Lng)
	}
	if p.Query == "" {
		return fmt.Errorf("query is required")
	}
	if p.MaxResults < 0 {
		return fmt.Errorf("max results must be >= 0, got %d", p.MaxResults)
	}
	if p.RadiusKm <= 0 {
		return fmt.Errorf("search radius must be positive, got %.2f", p.RadiusKm)
	}
	if p.MinDelay < 0 || p.MaxDelay < p.MinDelay {
		return fmt.Errorf("invalid delay window [%.2f, %.2f]", p.MinDelay, p.MaxDelay)
	}
	if p.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1, got %d", p.MaxRetries)
	}
	for _, z := range p.ZoomLevels {
		if z < 1 || z > 21 {
			return fmt.Errorf("zoom level %d out of range [1, 21]", z)
		}
	}
	return nil
}

// SearchParameters echoes the caller's inputs in the result document.
type SearchParameters struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Zoom       int     `json:"zoom"`
	Query      string  `json:"query"`
	MaxResults int     `json:"max_results"`
	Country    string  `json:"gl"`
}

// SearchResult is the output document handed to downstream consumers.
type SearchResult struct {
	SearchParameters SearchParameters `json:"search_parameters"`
	ResultsCount     int              `json:"results_count"`
	Places           []Place          `json:"places"`
}
