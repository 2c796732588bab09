package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/promisingcoder/google-maps-scraper/internal/engine/scraper"
	"github.com/promisingcoder/google-maps-scraper/internal/engine/storage"
	"github.com/promisingcoder/google-maps-scraper/internal/model"
	"github.com/promisingcoder/google-maps-scraper/internal/tui"
)

func runSearch(args []string) error {
	var params model.SearchParams
	var zoomLevelsStr, outputPath, dbPath, logPath string
	var useTUI bool

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.Float64Var(&params.Lat, "lat", 0, "Center latitude (required)")
	fs.Float64Var(&params.Lng, "lng", 0, "Center longitude (required)")
	fs.IntVar(&params.Zoom, "zoom", 13, "Base zoom level; large searches escalate from here")
	fs.StringVar(&zoomLevelsStr, "zoom-levels", "", "Comma-separated explicit zoom levels (overrides escalation)")
	fs.StringVar(&params.Query, "query", "", "Search query (required)")
	fs.IntVar(&params.MaxResults, "max-results", 20, "Maximum number of results")
	fs.StringVar(&params.Country, "gl", "eg", "Country code for the gl parameter")
	fs.Float64Var(&params.RadiusKm, "search-radius", 10.0, "Search radius in km for tile sweeps")
	fs.Float64Var(&params.MinDelay, "min-delay", 1.0, "Minimum inter-request delay in seconds")
	fs.Float64Var(&params.MaxDelay, "max-delay", 3.0, "Maximum inter-request delay in seconds")
	fs.IntVar(&params.MaxRetries, "max-retries", 3, "Retry attempts per request")
	fs.StringVar(&params.ProxyURL, "proxy", "", "HTTP/SOCKS5 proxy URL")
	fs.BoolVar(&params.StrictRadius, "strict-radius", false, "Drop places whose coordinates fall outside the radius")
	fs.BoolVar(&params.Debug, "debug", false, "Dump raw responses per tile")
	fs.StringVar(&outputPath, "output", "", "Output JSON path (default: stdout)")
	fs.StringVar(&dbPath, "db", "", "Also store results in a sqlite database")
	fs.StringVar(&logPath, "log", "", "Session log file path")
	fs.BoolVar(&useTUI, "tui", false, "Show a live progress view")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper search [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper search -lat 31.1276832 -lng 29.9064321 -query Restaurants -max-results 20\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper search -lat 40.7128 -lng -74.0060 -query \"Coffee shops\" -max-results 100 -gl us -output results.json\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if params.Query == "" {
		return fmt.Errorf("-query is required")
	}

	if zoomLevelsStr != "" {
		zooms, err := parseZoomLevels(zoomLevelsStr)
		if err != nil {
			return err
		}
		params.ZoomLevels = zooms
	}

	// Session log
	logWriter := io.Writer(io.Discard)
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		defer logFile.Close()
		logWriter = logFile
	}
	logger := log.New(logWriter, "", log.LstdFlags)
	logger.Printf("=== Session start: query=%q lat=%.6f lng=%.6f zoom=%d max_results=%d radius=%.1f gl=%s ===",
		params.Query, params.Lat, params.Lng, params.Zoom, params.MaxResults, params.RadiusKm, params.Country)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	opts := &scraper.RunOptions{Stats: &scraper.Stats{}}

	if dbPath != "" {
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()
		opts.Store = store
	}

	startTime := time.Now()

	var result *model.SearchResult
	var err error
	if useTUI {
		opts.SuppressStderr = true
		var sweeper *scraper.Sweeper
		sweeper, err = scraper.NewSweeper(params, logger, opts)
		if err != nil {
			return err
		}
		result, err = tui.RunProgress(sweeper, params, opts.Stats)
	} else {
		var sweeper *scraper.Sweeper
		sweeper, err = scraper.NewSweeper(params, logger, opts)
		if err != nil {
			return err
		}
		result, err = sweeper.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("search: %w", err)
	}
	if result == nil {
		return nil
	}

	duration := time.Since(startTime).Truncate(time.Second)
	logger.Printf("Done: results=%d tiles=%d errors=%d rate_limits=%d elapsed=%s",
		result.ResultsCount, opts.Stats.TilesDone.Load(),
		opts.Stats.Errors.Load(), opts.Stats.RateLimits.Load(), duration)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, append(encoded, '\n'), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Results saved to %s\n", outputPath)
	} else {
		fmt.Println(string(encoded))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Search Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Query:      %s\n", params.Query)
	fmt.Fprintf(os.Stderr, "  Center:     %.4f, %.4f (r=%.1fkm)\n", params.Lat, params.Lng, params.RadiusKm)
	fmt.Fprintf(os.Stderr, "  Results:    %d\n", result.ResultsCount)
	fmt.Fprintf(os.Stderr, "  Tiles:      %d\n", opts.Stats.TilesDone.Load())
	fmt.Fprintf(os.Stderr, "  Errors:     %d\n", opts.Stats.Errors.Load())
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	if dbPath != "" {
		fmt.Fprintf(os.Stderr, "  Database:   %s\n", dbPath)
	}
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	return nil
}

func parseZoomLevels(s string) ([]int, error) {
	var zooms []int
	for _, part := range strings.Split(s, ",") {
		z, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid zoom levels %q: %w", s, err)
		}
		zooms = append(zooms, z)
	}
	return zooms, nil
}
