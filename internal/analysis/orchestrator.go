package analysis

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

// Provider labels used in metrics.
const (
	providerWeather    = "weather"
	providerAirQuality = "air_quality"
)

// PointAnalysis is the outcome of analysing one point. When Provenance is
// FALLBACK the result is synthetic and Series, DateKeys and Aggregates are empty.
type PointAnalysis struct {
	Point      domain.LatLng             `json:"point"`
	Result     domain.AnalysisResult     `json:"analysis"`
	Provenance domain.Provenance         `json:"provenance"`
	Aggregates domain.Aggregates         `json:"aggregates"`
	Series     domain.DailySeries        `json:"series"`
	DateKeys   []string                  `json:"dates,omitempty"`
	AirQuality *domain.AirQualityReading `json:"airQuality,omitempty"`
}

// AreaAnalysis aggregates the sample points of a drawn shape.
type AreaAnalysis struct {
	Centroid   domain.LatLng         `json:"centroid"`
	Samples    []PointAnalysis       `json:"samples"`
	Result     domain.AnalysisResult `json:"analysis"`
	Provenance domain.Provenance     `json:"provenance"`
}

// Options tunes an Orchestrator.
type Options struct {
	Normalize domain.NormalizeOptions
	// Concurrency caps parallel point fetches. Zero means unlimited.
	Concurrency int
}

// Orchestrator fetches weather data for points and turns it into condition
// results, degrading to synthetic data when the provider fails.
type Orchestrator struct {
	weather     domain.WeatherDataProvider
	air         domain.AirQualityProvider
	engine      *domain.Engine
	normalize   domain.NormalizeOptions
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewOrchestrator creates an Orchestrator. air may be nil to skip air quality.
func NewOrchestrator(weather domain.WeatherDataProvider, air domain.AirQualityProvider, engine *domain.Engine, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Orchestrator {
	return &Orchestrator{
		weather:     weather,
		air:         air,
		engine:      engine,
		normalize:   opts.Normalize,
		concurrency: opts.Concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Engine returns the probability engine used for results.
func (o *Orchestrator) Engine() *domain.Engine {
	return o.engine
}

// AnalyzePoint never fails: any weather provider error yields a synthetic
// result marked FALLBACK. Air quality is best-effort and only fetched when
// that condition is enabled.
func (o *Orchestrator) AnalyzePoint(ctx context.Context, point domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) PointAnalysis {
	raw, err := o.fetchWeather(ctx, point, dates)
	if err != nil {
		o.logger.Warn("weather fetch failed, using sample data",
			"lat", point.Lat,
			"lng", point.Lng,
			"error", err,
		)
		return PointAnalysis{
			Point:      point,
			Result:     o.engine.Synthetic(enabled),
			Provenance: domain.ProvenanceFallback,
		}
	}

	series, keys := domain.NormalizeWith(raw, o.normalize)

	var air *domain.AirQualityReading
	if enabled.Has(domain.AirQuality) {
		air = o.fetchAirQuality(ctx, point)
	}

	return PointAnalysis{
		Point:      point,
		Result:     o.engine.Compute(series, air, enabled),
		Provenance: domain.ProvenancePrimary,
		Aggregates: domain.ComputeAggregates(series),
		Series:     series,
		DateKeys:   keys,
		AirQuality: air,
	}
}

// AnalyzeMultiple analyses every point concurrently. Results keep input order
// and each point degrades independently.
func (o *Orchestrator) AnalyzeMultiple(ctx context.Context, points []domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) []PointAnalysis {
	out := make([]PointAnalysis, len(points))

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, p := range points {
		g.Go(func() error {
			out[i] = o.AnalyzePoint(ctx, p, dates, enabled)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// AnalyzeArea samples the shape on a grid×grid lattice, analyses every sample
// and averages the results. The area is FALLBACK if any sample fell back.
func (o *Orchestrator) AnalyzeArea(ctx context.Context, shape domain.Shape, grid int, dates domain.DateRange, enabled domain.ConditionSet) (AreaAnalysis, error) {
	if err := shape.Validate(); err != nil {
		return AreaAnalysis{}, err
	}
	if grid <= 0 {
		grid = domain.DefaultGridSize
	}
	points := shape.Sample(grid)
	samples := o.AnalyzeMultiple(ctx, points, dates, enabled)

	results := make([]domain.AnalysisResult, len(samples))
	prov := domain.ProvenancePrimary
	for i, s := range samples {
		results[i] = s.Result
		if s.Provenance == domain.ProvenanceFallback {
			prov = domain.ProvenanceFallback
		}
	}

	return AreaAnalysis{
		Centroid:   shape.Centroid(),
		Samples:    samples,
		Result:     o.engine.Aggregate(results),
		Provenance: prov,
	}, nil
}

func (o *Orchestrator) fetchWeather(ctx context.Context, point domain.LatLng, dates domain.DateRange) (domain.RawPayload, error) {
	start := time.Now()
	raw, err := o.weather.FetchDaily(ctx, point, dates, domain.VariableCodes)
	o.metrics.ProviderDuration.WithLabelValues(providerWeather).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.ProviderRequests.WithLabelValues(providerWeather, "error").Inc()
		return nil, err
	}
	o.metrics.ProviderRequests.WithLabelValues(providerWeather, "success").Inc()
	return raw, nil
}

func (o *Orchestrator) fetchAirQuality(ctx context.Context, point domain.LatLng) *domain.AirQualityReading {
	if o.air == nil {
		return nil
	}
	start := time.Now()
	reading, err := o.air.FetchNearest(ctx, point)
	o.metrics.ProviderDuration.WithLabelValues(providerAirQuality).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.ProviderRequests.WithLabelValues(providerAirQuality, "error").Inc()
		o.logger.Warn("air quality fetch failed",
			"lat", point.Lat,
			"lng", point.Lng,
			"error", err,
		)
		return nil
	}
	o.metrics.ProviderRequests.WithLabelValues(providerAirQuality, "success").Inc()
	return reading
}
