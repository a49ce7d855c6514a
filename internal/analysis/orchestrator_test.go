package analysis_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insight-service/internal/analysis"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

func TestAnalyzePoint_Primary(t *testing.T) {
	w := &mockWeather{fn: always(windPayload(20, 1, 1, 1))}
	o := newOrchestrator(w, nil)

	pa := o.AnalyzePoint(context.Background(), domain.LatLng{Lat: 40, Lng: -74}, testDates(), domain.AllEnabled())

	assert.Equal(t, domain.ProvenancePrimary, pa.Provenance)
	assert.InDelta(t, 25, pa.Result[domain.Wind].Probability, 1e-9)
	assert.Equal(t, domain.RiskLow, pa.Result[domain.Wind].Risk)
	assert.Equal(t, []string{"20240601", "20240602", "20240603", "20240604"}, pa.DateKeys)
	assert.InDelta(t, 25, pa.Aggregates.TempMaxAvg, 1e-9)
	assert.InDelta(t, 4, pa.Aggregates.PrecipitationTotal, 1e-9)
	assert.Len(t, pa.Result, len(domain.AllConditions))
	assert.Zero(t, pa.Result[domain.AirQuality].Probability, "no air quality provider")
}

func TestAnalyzePoint_FallbackOnProviderError(t *testing.T) {
	w := &mockWeather{fn: func(domain.LatLng) (domain.RawPayload, error) { return nil, errUpstream }}
	metrics := observability.NewMetricsForTesting()
	engine := domain.NewEngine(domain.DefaultThresholds(), nil)
	o := analysis.NewOrchestrator(w, nil, engine, discardLogger(), metrics, analysis.Options{})

	pa := o.AnalyzePoint(context.Background(), domain.LatLng{Lat: 1, Lng: 2}, testDates(), windOnly())

	assert.Equal(t, domain.ProvenanceFallback, pa.Provenance)
	require.Len(t, pa.Result, 1)
	p := pa.Result[domain.Wind].Probability
	assert.GreaterOrEqual(t, p, 0.0)
	assert.Less(t, p, 100.0)
	assert.Empty(t, pa.DateKeys)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ProviderRequests.WithLabelValues("weather", "error")), 0)
}

func TestAnalyzePoint_EmptyEnvelopeIsPrimary(t *testing.T) {
	w := &mockWeather{fn: always(domain.RawPayload{})}
	o := newOrchestrator(w, nil)

	pa := o.AnalyzePoint(context.Background(), domain.LatLng{}, testDates(), domain.AllEnabled())

	assert.Equal(t, domain.ProvenancePrimary, pa.Provenance)
	for _, c := range domain.AllConditions {
		assert.Zero(t, pa.Result[c].Probability, c.String())
	}
}

func TestAnalyzePoint_AirQuality(t *testing.T) {
	pm := 60.0
	air := &mockAir{reading: &domain.AirQualityReading{PM25: &pm}}
	o := newOrchestrator(&mockWeather{fn: always(calmPayload)}, air)

	pa := o.AnalyzePoint(context.Background(), domain.LatLng{}, testDates(), domain.NewConditionSet(domain.AirQuality))
	assert.InDelta(t, 60, pa.Result[domain.AirQuality].Probability, 1e-9)
	assert.Equal(t, domain.RiskMedium, pa.Result[domain.AirQuality].Risk)
	assert.Equal(t, int64(1), air.calls.Load())

	o.AnalyzePoint(context.Background(), domain.LatLng{}, testDates(), windOnly())
	assert.Equal(t, int64(1), air.calls.Load(), "air quality skipped when not enabled")
}

func TestAnalyzePoint_AirQualityFailureIsBestEffort(t *testing.T) {
	air := &mockAir{err: errUpstream}
	o := newOrchestrator(&mockWeather{fn: always(calmPayload)}, air)

	pa := o.AnalyzePoint(context.Background(), domain.LatLng{}, testDates(), domain.AllEnabled())

	assert.Equal(t, domain.ProvenancePrimary, pa.Provenance)
	assert.Zero(t, pa.Result[domain.AirQuality].Probability)
	assert.Nil(t, pa.AirQuality)
}

func TestAnalyzeMultiple_OrderAndIndependentFailure(t *testing.T) {
	w := &mockWeather{fn: func(p domain.LatLng) (domain.RawPayload, error) {
		if p.Lat == 2 {
			return nil, errUpstream
		}
		return stormyPayload, nil
	}}
	o := newOrchestrator(w, nil)
	points := []domain.LatLng{{Lat: 1}, {Lat: 2}, {Lat: 3}}

	got := o.AnalyzeMultiple(context.Background(), points, testDates(), windOnly())

	require.Len(t, got, 3)
	for i, pa := range got {
		assert.Equal(t, points[i], pa.Point)
	}
	assert.Equal(t, domain.ProvenancePrimary, got[0].Provenance)
	assert.Equal(t, domain.ProvenanceFallback, got[1].Provenance)
	assert.Equal(t, domain.ProvenancePrimary, got[2].Provenance)
	assert.InDelta(t, 100, got[2].Result[domain.Wind].Probability, 1e-9)
}

func TestAnalyzeMultiple_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int64
	release := make(chan struct{})
	w := &mockWeather{fn: func(domain.LatLng) (domain.RawPayload, error) {
		n := inFlight.Add(1)
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return calmPayload, nil
	}}
	engine := domain.NewEngine(domain.DefaultThresholds(), nil)
	o := analysis.NewOrchestrator(w, nil, engine, discardLogger(), observability.NewMetricsForTesting(), analysis.Options{Concurrency: 2})

	done := make(chan []analysis.PointAnalysis)
	go func() {
		done <- o.AnalyzeMultiple(context.Background(), make([]domain.LatLng, 6), testDates(), windOnly())
	}()
	close(release)
	got := <-done

	assert.Len(t, got, 6)
	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, int64(6), w.calls.Load())
}

func TestAnalyzeArea(t *testing.T) {
	w := &mockWeather{fn: func(p domain.LatLng) (domain.RawPayload, error) {
		if p.Lat > 10 {
			return stormyPayload, nil
		}
		return calmPayload, nil
	}}
	o := newOrchestrator(w, nil)
	shape := domain.Shape{Rectangle: &domain.Bounds{South: 0, West: 0, North: 20, East: 20}}

	area, err := o.AnalyzeArea(context.Background(), shape, 2, testDates(), windOnly())
	require.NoError(t, err)

	assert.Len(t, area.Samples, 4)
	assert.Equal(t, int64(4), w.calls.Load())
	assert.Equal(t, domain.ProvenancePrimary, area.Provenance)
	assert.InDelta(t, 50, area.Result[domain.Wind].Probability, 1e-9)
	assert.Equal(t, domain.LatLng{Lat: 10, Lng: 10}, area.Centroid)
}

func TestAnalyzeArea_AnyFallbackMarksArea(t *testing.T) {
	var n atomic.Int64
	w := &mockWeather{fn: func(domain.LatLng) (domain.RawPayload, error) {
		if n.Add(1) == 1 {
			return nil, errUpstream
		}
		return calmPayload, nil
	}}
	o := newOrchestrator(w, nil)
	shape := domain.Shape{Rectangle: &domain.Bounds{South: 0, West: 0, North: 1, East: 1}}

	area, err := o.AnalyzeArea(context.Background(), shape, 0, testDates(), windOnly())
	require.NoError(t, err)

	assert.Len(t, area.Samples, domain.DefaultGridSize*domain.DefaultGridSize)
	assert.Equal(t, domain.ProvenanceFallback, area.Provenance)
}

func TestAnalyzeArea_ConcavePolygonStillAnalysed(t *testing.T) {
	w := &mockWeather{fn: always(stormyPayload)}
	o := newOrchestrator(w, nil)
	// An L whose 3×3 grid lands entirely in the notch.
	shape := domain.Shape{Polygon: []domain.LatLng{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 10}, {Lat: 1, Lng: 10},
		{Lat: 1, Lng: 1}, {Lat: 10, Lng: 1}, {Lat: 10, Lng: 0},
	}}

	area, err := o.AnalyzeArea(context.Background(), shape, 3, testDates(), windOnly())
	require.NoError(t, err)

	assert.Len(t, area.Samples, 6)
	assert.Equal(t, int64(6), w.calls.Load())
	assert.InDelta(t, 100, area.Result[domain.Wind].Probability, 1e-9)
}

func TestAnalyzeArea_InvalidShape(t *testing.T) {
	o := newOrchestrator(&mockWeather{fn: always(calmPayload)}, nil)

	_, err := o.AnalyzeArea(context.Background(), domain.Shape{Polygon: []domain.LatLng{{}, {Lat: 1}}}, 3, testDates(), windOnly())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
