// Command unify runs a single fetch-unify pass over the configured sources and
// writes the unified collection as JSON, and optionally as an XLSX workbook.
// Sources, mode, and geocoding come from the same environment variables as the
// service; flags override the mode.
//
// Usage:
//
//	go run ./cmd/unify -out data/places.json -xlsx data/places.xlsx
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/feriando/places-etl/internal/adapter/mapbox"
	"github.com/feriando/places-etl/internal/adapter/source"
	"github.com/feriando/places-etl/internal/adapter/xlsx"
	"github.com/feriando/places-etl/internal/config"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
	"github.com/feriando/places-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		slog.Error("unify failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the unified JSON collection (stdout when empty)")
	xlsxOut := flag.String("xlsx", "", "optional output path for an XLSX export")
	mode := flag.String("mode", "", "override UNIFY_MODE (strict or partial)")
	geocode := flag.Bool("geocode", false, "geocode places without coordinates when Mapbox is configured")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *mode != "" {
		cfg.UnifyMode, err = config.ParseUnifyMode(*mode)
		if err != nil {
			return fmt.Errorf("-mode: %w", err)
		}
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	fetcher := source.NewFetcher(cfg.SourceTimeout, logger)
	unifier := pipeline.NewUnifier(source.FromConfig(cfg), fetcher, pipeline.Mode(cfg.UnifyMode), logger, metrics)

	ctx := context.Background()
	batch, err := unifier.Unify(ctx)
	if err != nil {
		return err
	}

	places := batch.Places
	if *geocode && cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxCountry, cfg.MapboxTimeout, logger, metrics)
		enricher := pipeline.NewEnricher(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics), logger)
		places = enricher.Enrich(ctx, places)
	}

	if err := writeJSON(*out, places); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	if *xlsxOut != "" {
		if err := writeXLSX(*xlsxOut, places); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		logger.Info("wrote workbook", "path", *xlsxOut)
	}

	printStats(places)
	return nil
}

func writeJSON(path string, places []domain.Place) error {
	data, err := json.MarshalIndent(places, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeXLSX(path string, places []domain.Place) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := xlsx.WritePlaces(f, places); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printStats(places []domain.Place) {
	stats := domain.Summarize(places)
	fmt.Fprintf(os.Stderr, "\nTotal places: %d (%d located)\n", stats.Total, stats.Located)
	fmt.Fprintln(os.Stderr, "By category:")
	for _, k := range sortedKeys(stats.ByCategory) {
		fmt.Fprintf(os.Stderr, "  %-20s %d\n", k, stats.ByCategory[k])
	}
	fmt.Fprintln(os.Stderr, "By type:")
	for _, k := range sortedKeys(stats.ByType) {
		fmt.Fprintf(os.Stderr, "  %-20s %d\n", k, stats.ByType[k])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
