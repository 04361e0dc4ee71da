package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all dashboard settings, populated from environment variables.
type Config struct {
	APIURL          string
	APITimeout      time.Duration
	ReportPageSize  int
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// InitialDate is the first date to load. Zero means ask the query
	// service for its most recent report date.
	InitialDate  time.Time
	TimelineZone *time.Location

	BatchCacheSize int
	BatchCacheTTL  time.Duration

	// Live refresh from the ETL sink topic.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string
	RefreshDebounce time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first when
// present; variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	pageSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("REPORT_PAGE_SIZE", "500"))
	if err != nil || pageSize < 1 || pageSize > 5000 {
		return nil, errors.New("invalid REPORT_PAGE_SIZE: must be between 1 and 5000")
	}

	var initialDate time.Time
	if s := os.Getenv("DASHBOARD_DATE"); s != "" {
		initialDate, err = time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return nil, errors.New("invalid DASHBOARD_DATE: expected YYYY-MM-DD")
		}
	}

	zone, err := time.LoadLocation(sharedcfg.EnvOrDefault("TIMELINE_TZ", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMELINE_TZ: %w", err)
	}

	cacheTTL, err := parsePositiveDuration("BATCH_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	debounce, err := parsePositiveDuration("REFRESH_DEBOUNCE", "2s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		APIURL:          sharedcfg.EnvOrDefault("API_URL", "http://localhost:8080"),
		APITimeout:      apiTimeout,
		ReportPageSize:  pageSize,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		InitialDate:     initialDate,
		TimelineZone:    zone,

		BatchCacheSize: parsePositiveInt("BATCH_CACHE_SIZE", 16),
		BatchCacheTTL:  cacheTTL,

		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "transformed-weather-data"),
		KafkaGroupID:    sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-data-dashboard"),
		RefreshDebounce: debounce,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),
	}

	if cfg.APIURL == "" {
		return nil, errors.New("API_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

// parsePositiveInt falls back to def on anything but a positive integer.
func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
