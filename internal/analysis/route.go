package analysis

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// SegmentReport is the weather outlook at one sample point of a route.
type SegmentReport struct {
	Index       int                   `json:"index"`
	Name        string                `json:"name"`
	Point       domain.LatLng         `json:"point"`
	Result      domain.AnalysisResult `json:"analysis"`
	Provenance  domain.Provenance     `json:"provenance"`
	RiskScore   float64               `json:"riskScore"`
	Alternative *AlternativeCandidate `json:"alternative,omitempty"`
}

// RouteAnalyzer evaluates the weather along a route.
type RouteAnalyzer struct {
	orch     *Orchestrator
	ranker   *AlternativeRanker
	geocoder domain.GeocodeProvider
	logger   *slog.Logger
}

// NewRouteAnalyzer creates a RouteAnalyzer. geocoder may be nil.
func NewRouteAnalyzer(orch *Orchestrator, geocoder domain.GeocodeProvider, logger *slog.Logger) *RouteAnalyzer {
	return &RouteAnalyzer{
		orch:     orch,
		ranker:   NewAlternativeRanker(orch, geocoder, logger),
		geocoder: geocoder,
		logger:   logger,
	}
}

// AnalyzeRoute samples the route and reports every sample in route order,
// each with the safest nearby detour. Samples are analysed concurrently.
// A route without coordinates yields no segments.
func (a *RouteAnalyzer) AnalyzeRoute(ctx context.Context, route domain.Route, dates domain.DateRange, enabled domain.ConditionSet) []SegmentReport {
	samples := domain.SampleRoute(route)
	if len(samples) == 0 {
		return nil
	}

	out := make([]SegmentReport, len(samples))
	var g errgroup.Group
	if a.orch.concurrency > 0 {
		g.SetLimit(a.orch.concurrency)
	}
	for i, p := range samples {
		g.Go(func() error {
			out[i] = a.analyzeSample(ctx, i+1, p, dates, enabled)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (a *RouteAnalyzer) analyzeSample(ctx context.Context, index int, p domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) SegmentReport {
	pa := a.orch.AnalyzePoint(ctx, p, dates, enabled)

	name := domain.ReverseName(ctx, a.geocoder, p, a.logger)
	if name == "" {
		name = p.String()
	}

	return SegmentReport{
		Index:       index,
		Name:        name,
		Point:       p,
		Result:      pa.Result,
		Provenance:  pa.Provenance,
		RiskScore:   domain.OverallRisk(pa.Result),
		Alternative: a.ranker.Safest(ctx, p, dates, enabled, RouteDetourOffsets),
	}
}
