package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	UserAgent       string

	// NASA POWER daily point API.
	PowerBaseURL   string
	PowerCommunity string
	PowerTimeout   time.Duration
	DropFillValues bool

	// OpenAQ latest measurements.
	OpenAQEnabled bool
	OpenAQBaseURL string
	OpenAQTimeout time.Duration

	// Geocoding: Nominatim first, Photon as fallback, Mapbox when a token is set.
	NominatimBaseURL string
	PhotonBaseURL    string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Mapbox geocoding and directions configuration.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration

	// Routing.
	OSRMBaseURL      string
	RouteTimeout     time.Duration
	RouteMaxAttempts int
	RouteBackoffStep time.Duration

	// Analysis.
	AreaGridSize     int
	FetchConcurrency int

	// Snapshot publishing.
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaSnapshotTopic  string
	KafkaPublishTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	powerTimeout, err := parseDuration("POWER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	openAQTimeout, err := parseDuration("OPENAQ_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	routeTimeout, err := parseDuration("ROUTE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	publishTimeout, err := parseDuration("KAFKA_PUBLISH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	backoffStep, err := parseDuration("ROUTE_BACKOFF_STEP", "300ms")
	if err != nil {
		return nil, err
	}
	maxAttempts, err := parseInt("ROUTE_MAX_ATTEMPTS", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	gridSize, err := parseInt("AREA_GRID_SIZE", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseInt("FETCH_CONCURRENCY", 0, 0, 256)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("GEOCODE_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		UserAgent:       envOrDefault("USER_AGENT", "weather-insight-service/1.0"),

		PowerBaseURL:   envOrDefault("POWER_BASE_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		PowerCommunity: envOrDefault("POWER_COMMUNITY", "RE"),
		PowerTimeout:   powerTimeout,
		DropFillValues: parseBool("POWER_DROP_FILL_VALUES", false),

		OpenAQEnabled: parseBool("OPENAQ_ENABLED", true),
		OpenAQBaseURL: envOrDefault("OPENAQ_BASE_URL", "https://api.openaq.org/v2/latest"),
		OpenAQTimeout: openAQTimeout,

		NominatimBaseURL: envOrDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		PhotonBaseURL:    envOrDefault("PHOTON_BASE_URL", "https://photon.komoot.io/api/"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: cacheSize,

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,

		OSRMBaseURL:      envOrDefault("OSRM_BASE_URL", "https://router.project-osrm.org"),
		RouteTimeout:     routeTimeout,
		RouteMaxAttempts: maxAttempts,
		RouteBackoffStep: backoffStep,

		AreaGridSize:     gridSize,
		FetchConcurrency: concurrency,

		KafkaEnabled:        parseBool("KAFKA_ENABLED", false),
		KafkaBrokers:        parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic:  envOrDefault("KAFKA_SNAPSHOT_TOPIC", "weather-analysis-snapshots"),
		KafkaPublishTimeout: publishTimeout,
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, fallback, minV, maxV int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minV || n > maxV {
		return 0, fmt.Errorf("invalid %s: %q (must be %d-%d)", key, s, minV, maxV)
	}
	return n, nil
}

func parseBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
