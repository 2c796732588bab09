package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/promisingcoder/google-maps-scraper/internal/engine/geo"
	"github.com/promisingcoder/google-maps-scraper/internal/engine/storage"
	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

const (
	// singleRequestThreshold is the page size of one map search; result
	// caps at or under it need no tile sweep.
	singleRequestThreshold = 20

	minSweepZoom = 10
	maxSweepZoom = 21

	// maxZoomSkip caps the adaptive jump after a zoom level that
	// contributed nothing new.
	maxZoomSkip = 5
)

// Stats tracks sweep progress. Counters are atomics so a TUI can read
// them live from another goroutine.
type Stats struct {
	TilesDone    atomic.Int64
	PlacesFound  atomic.Int64
	UniquePlaces atomic.Int64
	Errors       atomic.Int64
	RateLimits   atomic.Int64
	CurrentZoom  atomic.Int64
}

// RunOptions provides optional hooks for a sweep.
type RunOptions struct {
	// OnPlaces is called with each tile's newly accumulated unique places.
	OnPlaces func([]model.Place)
	// SuppressStderr disables the built-in stderr progress lines.
	SuppressStderr bool
	// Stats, when set, is updated live instead of a private instance.
	Stats *Stats
	// Store, when set, persists newly found places as the sweep runs.
	Store *storage.Store
}

// Sweeper drives the zoom-escalating tile sweep for one search. The zoom
// strategy (explicit list vs computed range) is fixed at construction.
type Sweeper struct {
	params model.SearchParams
	client *Client
	zooms  []int
	logger *log.Logger
	stats  *Stats
	opts   RunOptions

	sleep func(context.Context, time.Duration) error
}

// NewSweeper validates the configuration and builds a sweeper. Invalid
// configuration is the only fatal error a search surfaces.
func NewSweeper(params model.SearchParams, logger *log.Logger, opts *RunOptions) (*Sweeper, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search parameters: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts == nil {
		opts = &RunOptions{}
	}

	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}

	return &Sweeper{
		params: params,
		client: NewClient(params),
		zooms:  zoomList(params),
		logger: logger,
		stats:  stats,
		opts:   *opts,
		sleep:  sleepCtx,
	}, nil
}

// zoomList selects the sweep's zoom levels once, before any request:
// the caller's explicit list when given, otherwise the ascending range
// from the requested minimum (floored at 10) up to 21.
func zoomList(params model.SearchParams) []int {
	if len(params.ZoomLevels) > 0 {
		return params.ZoomLevels
	}
	start := params.Zoom
	if start < minSweepZoom {
		start = minSweepZoom
	}
	var zooms []int
	for z := start; z <= maxSweepZoom; z++ {
		zooms = append(zooms, z)
	}
	return zooms
}

// Run executes the search and returns the capped result set. Per-tile
// failures are contained: a failing tile contributes zero places and the
// sweep continues. The context is consulted before every tile.
func (s *Sweeper) Run(ctx context.Context) (*model.SearchResult, error) {
	sess := newSession()

	var runErr error
	if s.params.MaxResults <= singleRequestThreshold {
		s.runSingle(ctx, sess)
	} else {
		runErr = s.runTiled(ctx, sess)
	}

	places := sess.ordered()
	if len(places) > s.params.MaxResults {
		places = places[:s.params.MaxResults]
	}
	if places == nil {
		places = []model.Place{}
	}

	return &model.SearchResult{
		SearchParameters: model.SearchParameters{
			Lat:        s.params.Lat,
			Lng:        s.params.Lng,
			Zoom:       s.params.Zoom,
			Query:      s.params.Query,
			MaxResults: s.params.MaxResults,
			Country:    s.params.Country,
		},
		ResultsCount: len(places),
		Places:       places,
	}, runErr
}

// runSingle issues exactly one request at the caller's center and zoom.
func (s *Sweeper) runSingle(ctx context.Context, sess *session) {
	if s.params.MaxResults == 0 {
		return
	}
	s.stats.CurrentZoom.Store(int64(s.params.Zoom))
	s.processTile(ctx, model.Tile{
		Zoom: s.params.Zoom,
		Lat:  s.params.Lat,
		Lng:  s.params.Lng,
	}, sess)
}

// runTiled walks zoom levels ascending, sweeping each level's grid
// nearest-first, skipping ahead when a level saturates.
func (s *Sweeper) runTiled(ctx context.Context, sess *session) error {
	for zoomIdx := 0; zoomIdx < len(s.zooms); {
		if sess.size() >= s.params.MaxResults {
			break
		}

		zoom := s.zooms[zoomIdx]
		s.stats.CurrentZoom.Store(int64(zoom))

		cov := geo.TileCoverage(zoom, s.params.RadiusKm)
		s.logger.Printf("ZOOM %d (%d/%d): %d tiles, %.0fm per side, %.2f km² coverage",
			zoom, zoomIdx+1, len(s.zooms), cov.TotalTiles, cov.MetersPerTileSide, cov.CoverageAreaKm2)

		tiles := geo.GenerateTileGrid(s.params.Lat, s.params.Lng, zoom, s.params.RadiusKm)

		uniqueBefore := sess.size()
		for i, tile := range tiles {
			if sess.size() >= s.params.MaxResults {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			s.processTile(ctx, tile, sess)

			if !s.opts.SuppressStderr {
				fmt.Fprintf(os.Stderr, "\r[zoom %d] tile %d/%d | %d unique | %d errors",
					zoom, i+1, len(tiles), sess.size(), s.stats.Errors.Load())
			}

			// Pace the sweep itself; the client's limiter paces requests
			if i < len(tiles)-1 || zoomIdx < len(s.zooms)-1 {
				if err := s.paceSleep(ctx); err != nil {
					return err
				}
			}
		}

		newUniques := sess.size() - uniqueBefore
		s.logger.Printf("ZOOM %d done: %d new unique, %d total", zoom, newUniques, sess.size())

		if newUniques == 0 {
			remaining := len(s.zooms) - zoomIdx - 1
			skip := min(maxZoomSkip, remaining)
			if skip > 0 {
				s.logger.Printf("ZOOM %d saturated, skipping %d levels", zoom, skip)
			}
			zoomIdx += skip + 1
		} else {
			zoomIdx++
		}
	}

	if !s.opts.SuppressStderr {
		fmt.Fprintln(os.Stderr)
	}
	return nil
}

// processTile fetches, decodes, extracts, and merges one tile. Every
// failure mode is contained here: the tile just contributes nothing.
func (s *Sweeper) processTile(ctx context.Context, tile model.Tile, sess *session) {
	defer s.stats.TilesDone.Add(1)
	defer s.stats.RateLimits.Store(s.client.RateLimitCount())

	body, err := s.client.Search(ctx, tile.Lat, tile.Lng, tile.Zoom, s.params.Query)
	if err != nil {
		s.stats.Errors.Add(1)
		s.logger.Printf("TILE %d,%d zoom=%d err=%v", tile.X, tile.Y, tile.Zoom, err)
		return
	}

	if s.params.Debug {
		debugFile := fmt.Sprintf("debug_tile_%d_%d_z%d.json", tile.X, tile.Y, tile.Zoom)
		os.WriteFile(debugFile, body, 0644)
	}

	tree := DecodePayload(body)
	if tree == nil {
		s.logger.Printf("TILE %d,%d zoom=%d: undecodable payload", tile.X, tile.Y, tile.Zoom)
		return
	}

	places := ExtractPlaces(tree)
	s.stats.PlacesFound.Add(int64(len(places)))

	if s.params.StrictRadius {
		places = geo.FilterWithinRadius(places, s.params.Lat, s.params.Lng, s.params.RadiusKm)
	}

	var added []model.Place
	for _, p := range places {
		if sess.size() >= s.params.MaxResults {
			break
		}
		if sess.add(p) {
			added = append(added, p)
		}
	}
	s.stats.UniquePlaces.Store(int64(sess.size()))

	if len(added) == 0 {
		return
	}

	if s.opts.OnPlaces != nil {
		s.opts.OnPlaces(added)
	}
	if s.opts.Store != nil {
		if _, err := s.opts.Store.InsertBatch(added, s.params.Query); err != nil {
			s.logger.Printf("STORE err=%v", err)
		}
	}
}

func (s *Sweeper) paceSleep(ctx context.Context) error {
	span := s.params.MaxDelay - s.params.MinDelay
	delay := s.params.MinDelay + rand.Float64()*span
	return s.sleep(ctx, time.Duration(delay*float64(time.Second)))
}

// session accumulates unique places for one search invocation. Keyed by
// name+address; key uniqueness holds for the session's lifetime.
type session struct {
	seen   map[string]struct{}
	places []model.Place
}

func newSession() *session {
	return &session{seen: make(map[string]struct{})}
}

// add merges a place into the session, reporting whether it was new.
func (s *session) add(p model.Place) bool {
	key := p.Key()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.places = append(s.places, p)
	return true
}

func (s *session) size() int {
	return len(s.places)
}

// ordered returns accumulated places in discovery order.
func (s *session) ordered() []model.Place {
	return s.places
}
