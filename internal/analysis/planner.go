package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

// routingProvider names the combined failure of every route provider.
const routingProvider = "routing"

// RoutePlan is a resolved route with the weather outlook along it.
type RoutePlan struct {
	Start      domain.LatLng     `json:"start"`
	End        domain.LatLng     `json:"end"`
	Route      domain.Route      `json:"route"`
	Summary    RouteSummary      `json:"summary"`
	Segments   []SegmentReport   `json:"segments"`
	Provenance domain.Provenance `json:"provenance"`
}

// RouteSummary is the human-readable headline of a plan.
type RouteSummary struct {
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	DateRange string `json:"dateRange"`
}

// PlannerConfig wires a RoutePlanner.
type PlannerConfig struct {
	Geocoder  domain.GeocodeProvider
	Primary   domain.RouteProvider
	Secondary domain.RouteProvider // optional, tried once after the primary gives up
	Policy    RetryPolicy
	Clock     clockwork.Clock // defaults to the real clock
}

// RoutePlanner resolves free-text endpoints, fetches a route and analyses it.
type RoutePlanner struct {
	geocoder  domain.GeocodeProvider
	primary   domain.RouteProvider
	secondary domain.RouteProvider
	policy    RetryPolicy
	clock     clockwork.Clock
	analyzer  *RouteAnalyzer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRoutePlanner creates a RoutePlanner.
func NewRoutePlanner(cfg PlannerConfig, analyzer *RouteAnalyzer, logger *slog.Logger, metrics *observability.Metrics) *RoutePlanner {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	policy := cfg.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultRoutePolicy()
	}
	if cfg.Secondary == nil && cfg.Primary != nil {
		logger.Warn("no secondary route provider configured; routes fail once the primary is exhausted",
			"primary", cfg.Primary.Name(),
			"max_attempts", policy.MaxAttempts,
		)
	}
	return &RoutePlanner{
		geocoder:  cfg.Geocoder,
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		policy:    policy,
		clock:     clock,
		analyzer:  analyzer,
		logger:    logger,
		metrics:   metrics,
	}
}

// Plan resolves both endpoints, fetches the route and analyses its weather.
// Unlike point analysis, a route that cannot be fetched from either provider
// is a hard error.
func (p *RoutePlanner) Plan(ctx context.Context, startText, endText string, dates domain.DateRange, enabled domain.ConditionSet) (RoutePlan, error) {
	startText, endText = strings.TrimSpace(startText), strings.TrimSpace(endText)
	if startText == "" || endText == "" {
		return RoutePlan{}, fmt.Errorf("%w: both start and destination are required", domain.ErrInvalidInput)
	}

	start, end, err := p.resolveEndpoints(ctx, startText, endText)
	if err != nil {
		return RoutePlan{}, err
	}

	route, err := p.fetchRoute(ctx, start, end)
	if err != nil {
		return RoutePlan{}, err
	}

	segments := p.analyzer.AnalyzeRoute(ctx, route, dates, enabled)
	prov := domain.ProvenancePrimary
	for _, s := range segments {
		if s.Provenance == domain.ProvenanceFallback {
			prov = domain.ProvenanceFallback
			break
		}
	}

	return RoutePlan{
		Start: start,
		End:   end,
		Route: route,
		Summary: RouteSummary{
			Distance:  domain.FormatDistance(route.Distance),
			Duration:  domain.FormatDuration(route.Duration),
			DateRange: dates.String(),
		},
		Segments:   segments,
		Provenance: prov,
	}, nil
}

func (p *RoutePlanner) resolveEndpoints(ctx context.Context, startText, endText string) (domain.LatLng, domain.LatLng, error) {
	var start, end domain.LatLng
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		start, err = domain.ResolvePlace(gctx, p.geocoder, startText, p.logger)
		if err != nil {
			return fmt.Errorf("resolve start: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		end, err = domain.ResolvePlace(gctx, p.geocoder, endText, p.logger)
		if err != nil {
			return fmt.Errorf("resolve destination: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.LatLng{}, domain.LatLng{}, err
	}
	return start, end, nil
}

// fetchRoute retries the primary provider under the policy, then tries the
// secondary provider once.
func (p *RoutePlanner) fetchRoute(ctx context.Context, start, end domain.LatLng) (domain.Route, error) {
	route, primaryErr := Retry(ctx, p.clock, p.policy, func(ctx context.Context, attempt int) (domain.Route, error) {
		return p.attempt(ctx, p.primary, start, end, attempt)
	})
	if primaryErr == nil {
		return route, nil
	}
	if ctx.Err() != nil {
		return domain.Route{}, fmt.Errorf("fetch route: %w", primaryErr)
	}
	if p.secondary == nil {
		return domain.Route{}, fmt.Errorf("fetch route from %s: %w", p.primary.Name(), primaryErr)
	}

	p.logger.Warn("primary route provider failed, trying secondary",
		"primary", p.primary.Name(),
		"secondary", p.secondary.Name(),
		"error", primaryErr,
	)
	route, secondaryErr := p.attempt(ctx, p.secondary, start, end, 1)
	if secondaryErr != nil {
		// Only an agreed "no route" stays NotFound; any other mix means the
		// providers failed.
		kind := domain.ErrNetwork
		if errors.Is(primaryErr, domain.ErrNotFound) && errors.Is(secondaryErr, domain.ErrNotFound) {
			kind = domain.ErrNotFound
		}
		return domain.Route{}, fmt.Errorf("fetch route: %w",
			domain.NewProviderError(routingProvider, kind, 0, errors.Join(primaryErr, secondaryErr)))
	}
	return route, nil
}

func (p *RoutePlanner) attempt(ctx context.Context, provider domain.RouteProvider, start, end domain.LatLng, attempt int) (domain.Route, error) {
	route, err := provider.Route(ctx, start, end)
	if err == nil && len(route.Coordinates) == 0 {
		err = domain.NewProviderError(provider.Name(), domain.ErrMalformedResponse, 0, errors.New("route has no coordinates"))
	}
	if err != nil {
		p.metrics.RouteAttempts.WithLabelValues(provider.Name(), "error").Inc()
		p.logger.Debug("route attempt failed",
			"provider", provider.Name(),
			"attempt", attempt,
			"error", err,
		)
		return domain.Route{}, err
	}
	p.metrics.RouteAttempts.WithLabelValues(provider.Name(), "success").Inc()
	if route.Provider == "" {
		route.Provider = provider.Name()
	}
	return route, nil
}
