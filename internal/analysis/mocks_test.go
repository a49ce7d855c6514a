package analysis_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/analysis"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

// --- mocks ---

// mockWeather answers every fetch through fn and counts calls.
type mockWeather struct {
	fn    func(p domain.LatLng) (domain.RawPayload, error)
	calls atomic.Int64
}

func (m *mockWeather) FetchDaily(_ context.Context, p domain.LatLng, _ domain.DateRange, _ []string) (domain.RawPayload, error) {
	m.calls.Add(1)
	return m.fn(p)
}

type mockAir struct {
	reading *domain.AirQualityReading
	err     error
	calls   atomic.Int64
}

func (m *mockAir) FetchNearest(_ context.Context, _ domain.LatLng) (*domain.AirQualityReading, error) {
	m.calls.Add(1)
	return m.reading, m.err
}

type mockGeocoder struct {
	mu          sync.Mutex
	places      map[string]domain.LatLng
	reverseName string
	reverseErr  error
	searches    []string
}

func (m *mockGeocoder) Search(_ context.Context, text string) (domain.LatLng, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, text)
	if p, ok := m.places[text]; ok {
		return p, nil
	}
	return domain.LatLng{}, domain.ErrNotFound
}

func (m *mockGeocoder) Reverse(_ context.Context, _ domain.LatLng) (string, error) {
	return m.reverseName, m.reverseErr
}

// mockRouter fails the first failures calls, then returns route.
type mockRouter struct {
	name     string
	route    domain.Route
	failures int
	failErr  error // defaults to a 503 network error
	calls    atomic.Int64
}

func (m *mockRouter) Name() string { return m.name }

func (m *mockRouter) Route(_ context.Context, _, _ domain.LatLng) (domain.Route, error) {
	n := m.calls.Add(1)
	if int(n) <= m.failures {
		if m.failErr != nil {
			return domain.Route{}, m.failErr
		}
		return domain.Route{}, domain.NewProviderError(m.name, domain.ErrNetwork, 503, errors.New("unavailable"))
	}
	return m.route, nil
}

type mockPublisher struct {
	mu        sync.Mutex
	err       error
	block     chan struct{} // when set, Publish waits for it or ctx
	published []domain.Snapshot
}

func (m *mockPublisher) Publish(ctx context.Context, s domain.Snapshot) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, s)
	return nil
}

func (m *mockPublisher) snapshots() []domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Snapshot(nil), m.published...)
}

// --- fixtures ---

var errUpstream = domain.NewProviderError("power", domain.ErrNetwork, 500, errors.New("boom"))

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDates() domain.DateRange {
	return domain.DateRange{
		Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
	}
}

// windPayload returns four days of data with the given wind speeds.
func windPayload(wind ...float64) domain.RawPayload {
	days := []string{"20240601", "20240602", "20240603", "20240604"}
	raw := domain.RawPayload{
		domain.VarTempMax:       {},
		domain.VarTempMin:       {},
		domain.VarPrecipitation: {},
		domain.VarWindSpeed:     {},
		domain.VarHumidity:      {},
	}
	for i, d := range days {
		raw[domain.VarTempMax][d] = 25.0
		raw[domain.VarTempMin][d] = 12.0
		raw[domain.VarPrecipitation][d] = 1.0
		raw[domain.VarHumidity][d] = 50.0
		if i < len(wind) {
			raw[domain.VarWindSpeed][d] = wind[i]
		}
	}
	return raw
}

// calmPayload has no strong-wind days; stormyPayload has only strong-wind days.
var (
	calmPayload   = windPayload(1, 2, 3, 4)
	stormyPayload = windPayload(20, 20, 20, 20)
)

func always(raw domain.RawPayload) func(domain.LatLng) (domain.RawPayload, error) {
	return func(domain.LatLng) (domain.RawPayload, error) { return raw, nil }
}

func windOnly() domain.ConditionSet {
	return domain.NewConditionSet(domain.Wind)
}

func newOrchestrator(w domain.WeatherDataProvider, air domain.AirQualityProvider) *analysis.Orchestrator {
	engine := domain.NewEngine(domain.DefaultThresholds(), nil)
	return analysis.NewOrchestrator(w, air, engine, discardLogger(), observability.NewMetricsForTesting(), analysis.Options{})
}
