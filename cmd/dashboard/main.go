package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-data-dashboard/internal/adapter/cache"
	"github.com/couchcryptid/storm-data-dashboard/internal/adapter/graphql"
	httpadapter "github.com/couchcryptid/storm-data-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-data-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-data-dashboard/internal/config"
	"github.com/couchcryptid/storm-data-dashboard/internal/dashboard"
	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/couchcryptid/storm-data-dashboard/internal/query"
	"github.com/couchcryptid/storm-data-dashboard/internal/refresh"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	api := graphql.NewClient(cfg.APIURL, cfg.APITimeout, cfg.ReportPageSize, logger)
	batches := cache.NewBatchCache(api, cfg.BatchCacheSize, cfg.BatchCacheTTL, metrics)

	opts := []dashboard.Option{dashboard.WithLocation(cfg.TimelineZone)}

	// Popup place names (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder cache", "error", err)
			os.Exit(1)
		}
		opts = append(opts, dashboard.WithGeocoder(geocoder))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	views := dashboard.New(batches, logger, metrics, opts...)
	console := query.NewConsole(api, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, views, console, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the initial date. /readyz reports 503 until this succeeds.
	go func() {
		if _, err := views.Start(ctx, cfg.InitialDate); err != nil && ctx.Err() == nil {
			logger.Error("initial load failed", "error", err)
		}
	}()

	// Start live refresh.
	var watcher *kafkaadapter.Watcher
	if cfg.KafkaEnabled {
		watcher = kafkaadapter.NewWatcher(cfg, logger)
		r := refresh.New(watcher, batches, views, logger, metrics, cfg.RefreshDebounce)
		go func() {
			if err := r.Run(ctx); err != nil {
				logger.Error("live refresh error", "error", err)
			}
		}()
		logger.Info("live refresh enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("live refresh disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
