package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/geocode"
	httpadapter "github.com/couchcryptid/weather-insight-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-insight-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/openaq"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/osrm"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/photon"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/power"
	"github.com/couchcryptid/weather-insight-service/internal/analysis"
	"github.com/couchcryptid/weather-insight-service/internal/config"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	weather := power.NewClient(cfg.PowerBaseURL, cfg.PowerCommunity, cfg.PowerTimeout, cfg.UserAgent, logger)

	// Air quality is optional; without it the condition scores 0.
	var air domain.AirQualityProvider
	if cfg.OpenAQEnabled {
		air = openaq.NewClient(cfg.OpenAQBaseURL, cfg.OpenAQTimeout, cfg.UserAgent)
		logger.Info("openaq air quality enabled", "timeout", cfg.OpenAQTimeout)
	} else {
		logger.Info("openaq air quality disabled")
	}

	orch := analysis.NewOrchestrator(weather, air, domain.NewEngine(domain.DefaultThresholds(), nil), logger, metrics, analysis.Options{
		Normalize:   domain.NormalizeOptions{DropFillValue: cfg.DropFillValues, FillValue: domain.PowerFillValue},
		Concurrency: cfg.FetchConcurrency,
	})

	// Geocoding chain: Nominatim, then Photon, then Mapbox (feature-flagged via
	// MAPBOX_ENABLED / MAPBOX_TOKEN), behind one LRU cache.
	providers := []geocode.Named{
		{Name: "nominatim", Provider: nominatim.NewClient(cfg.NominatimBaseURL, cfg.GeocodeTimeout, cfg.UserAgent)},
		{Name: "photon", Provider: photon.NewClient(cfg.PhotonBaseURL, cfg.GeocodeTimeout, cfg.UserAgent)},
	}
	var secondary domain.RouteProvider
	if cfg.MapboxEnabled {
		providers = append(providers, geocode.Named{
			Name:     "mapbox",
			Provider: mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.UserAgent),
		})
		secondary = mapbox.NewDirections(cfg.MapboxToken, cfg.RouteTimeout, cfg.UserAgent)
		logger.Info("mapbox geocoding and directions enabled", "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox disabled")
	}
	geocoder, err := geocode.NewCached(geocode.NewChain(logger, providers...), cfg.GeocodeCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create geocode cache", "error", err)
		os.Exit(1)
	}
	metrics.GeocodeEnabled.Set(1)
	logger.Info("geocoding enabled", "providers", len(providers), "cache_size", cfg.GeocodeCacheSize)

	planner := analysis.NewRoutePlanner(analysis.PlannerConfig{
		Geocoder:  geocoder,
		Primary:   osrm.NewClient(cfg.OSRMBaseURL, cfg.RouteTimeout, cfg.UserAgent),
		Secondary: secondary,
		Policy: analysis.RetryPolicy{
			MaxAttempts: cfg.RouteMaxAttempts,
			Backoff:     analysis.LinearBackoff(cfg.RouteBackoffStep),
		},
	}, analysis.NewRouteAnalyzer(orch, geocoder, logger), logger, metrics)

	svcCfg := analysis.ServiceConfig{
		Geocoder:       geocoder,
		Planner:        planner,
		PublishTimeout: cfg.KafkaPublishTimeout,
		GridSize:       cfg.AreaGridSize,
	}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		svcCfg.Publisher = publisher
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	}

	svc := analysis.NewService(orch, svcCfg, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()
	svc.MarkReady()

	<-ctx.Done()
	logger.Info("shutting down")
	svc.MarkNotReady()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Warn("snapshot publishes still in flight at shutdown", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
