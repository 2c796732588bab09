package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/promisingcoder/google-maps-scraper/internal/model"
)

// Store persists extracted places in a sqlite database. The name+address
// pair dedupes across runs at the storage layer, mirroring the sweep's
// in-memory session key.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		rating REAL,
		reviews_count INTEGER,
		address TEXT,
		phones TEXT,
		website TEXT,
		price_range TEXT,
		cuisine TEXT,
		category TEXT,
		open_now INTEGER,
		closes TEXT,
		dine_in INTEGER NOT NULL DEFAULT 0,
		takeaway INTEGER NOT NULL DEFAULT 0,
		delivery INTEGER NOT NULL DEFAULT 0,
		lat REAL,
		lng REAL,
		review_highlights TEXT,
		image TEXT,
		query TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(name, address)
	);
	CREATE INDEX IF NOT EXISTS idx_places_query ON places(query);
	CREATE INDEX IF NOT EXISTS idx_places_rating ON places(rating);
	CREATE INDEX IF NOT EXISTS idx_places_coords ON places(lat, lng);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch stores places in one transaction, skipping duplicates.
// Returns the number of rows actually inserted.
func (s *Store) InsertBatch(places []model.Place, query string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO places
		(name, rating, reviews_count, address, phones, website, price_range,
		 cuisine, category, open_now, closes, dine_in, takeaway, delivery,
		 lat, lng, review_highlights, image, query)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range places {
		var openNow sql.NullBool
		var closes sql.NullString
		if p.OpeningHours != nil {
			if p.OpeningHours.Open != nil {
				openNow = sql.NullBool{Bool: *p.OpeningHours.Open, Valid: true}
			}
			closes = sql.NullString{String: p.OpeningHours.Closes, Valid: p.OpeningHours.Closes != ""}
		}

		var highlights sql.NullString
		if len(p.ReviewHighlights) > 0 {
			if hb, err := json.Marshal(p.ReviewHighlights); err == nil {
				highlights = sql.NullString{String: string(hb), Valid: true}
			}
		}

		var image string
		if len(p.Images) > 0 {
			image = p.Images[0]
		}

		res, err := stmt.Exec(
			p.Name,
			nullFloat(p.Rating),
			nullInt(p.ReviewsCount),
			p.Address,
			strings.Join(p.Phones, " | "),
			p.Website,
			p.PriceRange,
			p.Cuisine,
			p.Category,
			openNow,
			closes,
			p.Services.DineIn,
			p.Services.Takeaway,
			p.Services.Delivery,
			nullFloat(p.Coordinates.Lat),
			nullFloat(p.Coordinates.Lng),
			highlights,
			image,
			query,
		)
		if err != nil {
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

// Count reports how many places are stored.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM places").Scan(&count)
	return count, err
}

// PlaceRow is one exported row: the place plus its originating query.
type PlaceRow struct {
	Place model.Place
	Query string
}

// LoadAll reads every stored place ordered by name, for export.
func (s *Store) LoadAll() ([]PlaceRow, error) {
	rows, err := s.db.Query(`
		SELECT name, rating, reviews_count, address, phones, website, price_range,
		       cuisine, category, open_now, closes, dine_in, takeaway, delivery,
		       lat, lng, review_highlights, image, query
		FROM places ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlaceRow
	for rows.Next() {
		var (
			p          model.Place
			rating     sql.NullFloat64
			reviews    sql.NullInt64
			phones     sql.NullString
			openNow    sql.NullBool
			closes     sql.NullString
			lat, lng   sql.NullFloat64
			highlights sql.NullString
			image      sql.NullString
			query      string
		)
		err := rows.Scan(
			&p.Name, &rating, &reviews, &p.Address, &phones, &p.Website, &p.PriceRange,
			&p.Cuisine, &p.Category, &openNow, &closes,
			&p.Services.DineIn, &p.Services.Takeaway, &p.Services.Delivery,
			&lat, &lng, &highlights, &image, &query,
		)
		if err != nil {
			continue
		}

		if rating.Valid {
			r := rating.Float64
			p.Rating = &r
		}
		if reviews.Valid {
			n := int(reviews.Int64)
			p.ReviewsCount = &n
		}
		if phones.Valid && phones.String != "" {
			p.Phones = strings.Split(phones.String, " | ")
		}
		if openNow.Valid || (closes.Valid && closes.String != "") {
			oh := &model.OpeningHours{Closes: closes.String}
			if openNow.Valid {
				b := openNow.Bool
				oh.Open = &b
			}
			p.OpeningHours = oh
		}
		if lat.Valid {
			v := lat.Float64
			p.Coordinates.Lat = &v
		}
		if lng.Valid {
			v := lng.Float64
			p.Coordinates.Lng = &v
		}
		if highlights.Valid {
			json.Unmarshal([]byte(highlights.String), &p.ReviewHighlights)
		}
		if image.Valid && image.String != "" {
			p.Images = []string{image.String}
		}

		out = append(out, PlaceRow{Place: p, Query: query})
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
