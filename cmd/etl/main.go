package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/feriando/places-etl/internal/adapter/http"
	kafkaadapter "github.com/feriando/places-etl/internal/adapter/kafka"
	"github.com/feriando/places-etl/internal/adapter/mapbox"
	"github.com/feriando/places-etl/internal/adapter/source"
	"github.com/feriando/places-etl/internal/adapter/sqlite"
	"github.com/feriando/places-etl/internal/catalog"
	"github.com/feriando/places-etl/internal/config"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
	"github.com/feriando/places-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxCountry, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	fetcher := source.NewFetcher(cfg.SourceTimeout, logger)
	unifier := pipeline.NewUnifier(source.FromConfig(cfg), fetcher, pipeline.Mode(cfg.UnifyMode), logger, metrics)
	places := catalog.New()

	opts := pipeline.Options{Interval: cfg.RefreshInterval}

	var store *sqlite.Store
	if cfg.SnapshotPath != "" {
		store, err = sqlite.Open(cfg.SnapshotPath)
		if err != nil {
			logger.Error("failed to open snapshot store", "path", cfg.SnapshotPath, "error", err)
			os.Exit(1)
		}
		opts.Snapshot = store
		opts.Sinks = append(opts.Sinks, store)
		logger.Info("snapshot store enabled", "path", cfg.SnapshotPath)
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		opts.Sinks = append(opts.Sinks, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(unifier, pipeline.NewEnricher(geocoder, logger), places, logger, metrics, opts)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, places, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("snapshot store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
