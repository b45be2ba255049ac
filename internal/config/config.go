package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Unify modes.
const (
	UnifyStrict  = "strict"
	UnifyPartial = "partial"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Source locations: a local path or an http(s) URL. An empty
	// GeoJSONSource disables the optional fairs GeoJSON feed.
	MarketsSource   string
	FairsSource     string
	CultureSource   string
	GeoJSONSource   string
	SourceTimeout   time.Duration
	RefreshInterval time.Duration
	UnifyMode       string

	// SQLite last-known-good snapshot. Set to an empty string to disable.
	SnapshotPath string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxCountry   string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	snapshotPath, ok := os.LookupEnv("SNAPSHOT_PATH")
	if !ok {
		snapshotPath = "data/places.db"
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MarketsSource:   sharedcfg.EnvOrDefault("MARKETS_SOURCE", "data/mercados.csv"),
		FairsSource:     sharedcfg.EnvOrDefault("FAIRS_SOURCE", "data/ferias.csv"),
		CultureSource:   sharedcfg.EnvOrDefault("CULTURE_SOURCE", "data/espacios_culturales.json"),
		GeoJSONSource:   os.Getenv("FERIAS_GEOJSON_SOURCE"),
		SourceTimeout:   sourceTimeout,
		RefreshInterval: refreshInterval,
		UnifyMode:       sharedcfg.EnvOrDefault("UNIFY_MODE", UnifyStrict),

		SnapshotPath: snapshotPath,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "places"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		MapboxCountry:   sharedcfg.EnvOrDefault("MAPBOX_COUNTRY", "ar"),
	}

	mode, err := ParseUnifyMode(cfg.UnifyMode)
	if err != nil {
		return nil, fmt.Errorf("invalid UNIFY_MODE: %w", err)
	}
	cfg.UnifyMode = mode
	if cfg.MarketsSource == "" || cfg.FairsSource == "" || cfg.CultureSource == "" {
		return nil, errors.New("MARKETS_SOURCE, FAIRS_SOURCE and CULTURE_SOURCE are required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// ParseUnifyMode normalizes a unify mode name, case-insensitively.
func ParseUnifyMode(s string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(s))
	if mode != UnifyStrict && mode != UnifyPartial {
		return "", fmt.Errorf("unknown unify mode %q: want %q or %q", s, UnifyStrict, UnifyPartial)
	}
	return mode, nil
}
