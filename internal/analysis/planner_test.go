package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insight-service/internal/analysis"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

// noWait retries immediately so planner tests do not need to drive a clock.
var noWait = analysis.RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return 0 }}

type plannerFixture struct {
	planner   *analysis.RoutePlanner
	primary   *mockRouter
	secondary *mockRouter
	geocoder  *mockGeocoder
	metrics   *observability.Metrics
}

func newPlannerFixture(primaryFailures, secondaryFailures int) *plannerFixture {
	f := &plannerFixture{
		primary:   &mockRouter{name: "osrm", route: stepRoute(), failures: primaryFailures},
		secondary: &mockRouter{name: "mapbox", route: stepRoute(), failures: secondaryFailures},
		geocoder: &mockGeocoder{places: map[string]domain.LatLng{
			"Paris":  {Lat: 48.8566, Lng: 2.3522},
			"Berlin": {Lat: 52.52, Lng: 13.405},
		}},
		metrics: observability.NewMetricsForTesting(),
	}
	engine := domain.NewEngine(domain.DefaultThresholds(), nil)
	o := analysis.NewOrchestrator(&mockWeather{fn: always(calmPayload)}, nil, engine, discardLogger(), f.metrics, analysis.Options{})
	f.planner = analysis.NewRoutePlanner(analysis.PlannerConfig{
		Geocoder:  f.geocoder,
		Primary:   f.primary,
		Secondary: f.secondary,
		Policy:    noWait,
	}, analysis.NewRouteAnalyzer(o, nil, discardLogger()), discardLogger(), f.metrics)
	return f
}

func TestPlan_HappyPath(t *testing.T) {
	f := newPlannerFixture(0, 0)

	plan, err := f.planner.Plan(context.Background(), "Paris (France)", " Berlin ", testDates(), windOnly())
	require.NoError(t, err)

	assert.Equal(t, domain.LatLng{Lat: 48.8566, Lng: 2.3522}, plan.Start)
	assert.Equal(t, domain.LatLng{Lat: 52.52, Lng: 13.405}, plan.End)
	assert.Equal(t, "osrm", plan.Route.Provider)
	assert.Equal(t, "8.5 km", plan.Summary.Distance)
	assert.Equal(t, "15 min", plan.Summary.Duration)
	assert.Equal(t, "From 2024-06-01 to 2024-06-04", plan.Summary.DateRange)
	assert.Len(t, plan.Segments, 2)
	assert.Equal(t, domain.ProvenancePrimary, plan.Provenance)
	assert.Zero(t, f.secondary.calls.Load())
}

func TestPlan_RawCoordinatesSkipGeocoder(t *testing.T) {
	f := newPlannerFixture(0, 0)

	plan, err := f.planner.Plan(context.Background(), "48.85, 2.35", "52.52 13.40", testDates(), windOnly())
	require.NoError(t, err)

	assert.Equal(t, domain.LatLng{Lat: 48.85, Lng: 2.35}, plan.Start)
	assert.Empty(t, f.geocoder.searches)
}

func TestPlan_RetriesPrimaryThenSucceeds(t *testing.T) {
	f := newPlannerFixture(2, 0)

	plan, err := f.planner.Plan(context.Background(), "Paris", "Berlin", testDates(), windOnly())
	require.NoError(t, err)

	assert.Equal(t, "osrm", plan.Route.Provider)
	assert.Equal(t, int64(3), f.primary.calls.Load())
	assert.Zero(t, f.secondary.calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.RouteAttempts.WithLabelValues("osrm", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RouteAttempts.WithLabelValues("osrm", "success")), 0)
}

func TestPlan_FallsBackToSecondaryOnce(t *testing.T) {
	f := newPlannerFixture(10, 0)

	plan, err := f.planner.Plan(context.Background(), "Paris", "Berlin", testDates(), windOnly())
	require.NoError(t, err)

	assert.Equal(t, "mapbox", plan.Route.Provider)
	assert.Equal(t, int64(3), f.primary.calls.Load())
	assert.Equal(t, int64(1), f.secondary.calls.Load())
}

func TestPlan_BothProvidersFail(t *testing.T) {
	f := newPlannerFixture(10, 10)

	_, err := f.planner.Plan(context.Background(), "Paris", "Berlin", testDates(), windOnly())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, int64(1), f.secondary.calls.Load())
}

func TestPlan_MixedFailuresReportProviderFailure(t *testing.T) {
	f := newPlannerFixture(10, 10)
	f.secondary.failErr = domain.NewProviderError("mapbox", domain.ErrNotFound, 404, errors.New("no route"))

	_, err := f.planner.Plan(context.Background(), "Paris", "Berlin", testDates(), windOnly())

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "routing", pe.Provider)
	assert.Equal(t, domain.ErrNetwork, pe.Kind)
}

func TestPlan_NoRouteFromEitherProvider(t *testing.T) {
	f := newPlannerFixture(10, 10)
	noRoute := domain.NewProviderError("osrm", domain.ErrNotFound, 0, errors.New("NoRoute"))
	f.primary.failErr = noRoute
	f.secondary.failErr = noRoute

	_, err := f.planner.Plan(context.Background(), "Paris", "Berlin", testDates(), windOnly())

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ErrNotFound, pe.Kind)
}

func TestNewRoutePlanner_WarnsWithoutSecondary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	o := newOrchestrator(&mockWeather{fn: always(calmPayload)}, nil)
	analyzer := analysis.NewRouteAnalyzer(o, nil, discardLogger())

	analysis.NewRoutePlanner(analysis.PlannerConfig{
		Primary: &mockRouter{name: "osrm"},
		Policy:  noWait,
	}, analyzer, logger, observability.NewMetricsForTesting())

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "no secondary route provider")
	assert.Contains(t, buf.String(), "primary=osrm")

	buf.Reset()
	analysis.NewRoutePlanner(analysis.PlannerConfig{
		Primary:   &mockRouter{name: "osrm"},
		Secondary: &mockRouter{name: "mapbox"},
		Policy:    noWait,
	}, analyzer, logger, observability.NewMetricsForTesting())

	assert.Empty(t, buf.String())
}

func TestPlan_MissingInput(t *testing.T) {
	f := newPlannerFixture(0, 0)

	_, err := f.planner.Plan(context.Background(), "Paris", "   ", testDates(), windOnly())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, f.primary.calls.Load())
}

func TestPlan_UnknownPlace(t *testing.T) {
	f := newPlannerFixture(0, 0)

	_, err := f.planner.Plan(context.Background(), "Paris", "Atlantis, Ocean", testDates(), windOnly())

	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "destination")
	assert.Zero(t, f.primary.calls.Load())
}

func TestPlan_EmptyRouteIsMalformed(t *testing.T) {
	f := newPlannerFixture(0, 0)
	f.primary.route = domain.Route{}
	f.secondary.route = domain.Route{}

	_, err := f.planner.Plan(context.Background(), "Paris", "Berlin", testDates(), windOnly())

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestPlan_BackoffUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	primary := &mockRouter{name: "osrm", route: stepRoute(), failures: 1}
	metrics := observability.NewMetricsForTesting()
	o := newOrchestrator(&mockWeather{fn: always(calmPayload)}, nil)
	planner := analysis.NewRoutePlanner(analysis.PlannerConfig{
		Primary: primary,
		Policy:  analysis.DefaultRoutePolicy(),
		Clock:   clock,
	}, analysis.NewRouteAnalyzer(o, nil, discardLogger()), discardLogger(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := planner.Plan(ctx, "1, 1", "2, 2", testDates(), windOnly())
		done <- err
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), primary.calls.Load())
	clock.Advance(300 * time.Millisecond)

	require.NoError(t, <-done)
	assert.Equal(t, int64(2), primary.calls.Load())
}
