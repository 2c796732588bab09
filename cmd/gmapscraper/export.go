package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/promisingcoder/google-maps-scraper/internal/engine/storage"
)

func runExport(args []string) error {
	var dbPath, outputPath, format string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file (required)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&format, "format", "csv", "Export format: csv")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper export -db results.db\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper export -db results.db -output results.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if format != "csv" {
		return fmt.Errorf("unsupported format: %s (only csv supported)", format)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+".csv")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	rows, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no places found in database")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"name", "rating", "reviews_count", "address", "phones", "website",
		"price_range", "cuisine", "category", "open_now", "closes",
		"dine_in", "takeaway", "delivery", "lat", "lng", "image", "query",
	})

	for _, row := range rows {
		p := row.Place

		rating := ""
		if p.Rating != nil {
			rating = fmt.Sprintf("%.1f", *p.Rating)
		}
		reviews := ""
		if p.ReviewsCount != nil {
			reviews = fmt.Sprintf("%d", *p.ReviewsCount)
		}
		openNow, closes := "", ""
		if p.OpeningHours != nil {
			if p.OpeningHours.Open != nil {
				openNow = fmt.Sprintf("%t", *p.OpeningHours.Open)
			}
			closes = p.OpeningHours.Closes
		}
		lat, lng := "", ""
		if p.Coordinates.Lat != nil {
			lat = fmt.Sprintf("%.6f", *p.Coordinates.Lat)
		}
		if p.Coordinates.Lng != nil {
			lng = fmt.Sprintf("%.6f", *p.Coordinates.Lng)
		}
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}

		w.Write([]string{
			p.Name, rating, reviews, p.Address,
			strings.Join(p.Phones, " | "), p.Website,
			p.PriceRange, p.Cuisine, p.Category, openNow, closes,
			fmt.Sprintf("%t", p.Services.DineIn),
			fmt.Sprintf("%t", p.Services.Takeaway),
			fmt.Sprintf("%t", p.Services.Delivery),
			lat, lng, image, row.Query,
		})
	}

	fmt.Fprintf(os.Stderr, "Exported %d places to %s\n", len(rows), outputPath)
	return nil
}
