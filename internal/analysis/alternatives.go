package analysis

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// Offset is a displacement in decimal degrees.
type Offset struct {
	DLat float64
	DLng float64
}

// DefaultAlternativeOffsets probe roughly 20 km north, south, east and west.
var DefaultAlternativeOffsets = []Offset{
	{DLat: 0.2}, {DLat: -0.2}, {DLng: 0.2}, {DLng: -0.2},
}

// RouteDetourOffsets probe roughly 10 km around each route sample.
var RouteDetourOffsets = []Offset{
	{DLat: 0.1}, {DLat: -0.1}, {DLng: 0.1}, {DLng: -0.1},
}

// AlternativeCandidate is a nearby point with its overall risk.
type AlternativeCandidate struct {
	Lat        float64           `json:"lat"`
	Lng        float64           `json:"lng"`
	Label      string            `json:"label,omitempty"`
	RiskScore  float64           `json:"riskScore"`
	Provenance domain.Provenance `json:"provenance"`
}

// Point returns the candidate's coordinates.
func (c AlternativeCandidate) Point() domain.LatLng {
	return domain.LatLng{Lat: c.Lat, Lng: c.Lng}
}

// DisplayLabel is the geocoded label, or the coordinates when there is none.
func (c AlternativeCandidate) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Point().String()
}

// AlternativeRanker scores points around a base location.
type AlternativeRanker struct {
	orch     *Orchestrator
	geocoder domain.GeocodeProvider
	logger   *slog.Logger
}

// NewAlternativeRanker creates a ranker. geocoder may be nil, in which case
// candidates carry no label.
func NewAlternativeRanker(orch *Orchestrator, geocoder domain.GeocodeProvider, logger *slog.Logger) *AlternativeRanker {
	return &AlternativeRanker{orch: orch, geocoder: geocoder, logger: logger}
}

// FindAlternatives analyses base+offset for each offset concurrently and
// returns the candidates sorted by ascending risk. Ties keep offset order.
// With no offsets the defaults are used.
func (r *AlternativeRanker) FindAlternatives(ctx context.Context, base domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet, offsets ...Offset) []AlternativeCandidate {
	if len(offsets) == 0 {
		offsets = DefaultAlternativeOffsets
	}

	out := make([]AlternativeCandidate, len(offsets))
	var g errgroup.Group
	for i, off := range offsets {
		g.Go(func() error {
			p := base.Offset(off.DLat, off.DLng)
			pa := r.orch.AnalyzePoint(ctx, p, dates, enabled)
			out[i] = AlternativeCandidate{
				Lat:        p.Lat,
				Lng:        p.Lng,
				Label:      domain.ReverseName(ctx, r.geocoder, p, r.logger),
				RiskScore:  domain.OverallRisk(pa.Result),
				Provenance: pa.Provenance,
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore < out[j].RiskScore
	})
	return out
}

// Safest evaluates the offsets one after another and returns the candidate
// with the strictly lowest risk, the first one winning ties. Only improving
// candidates are reverse geocoded.
func (r *AlternativeRanker) Safest(ctx context.Context, base domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet, offsets []Offset) *AlternativeCandidate {
	var best *AlternativeCandidate
	for _, off := range offsets {
		if ctx.Err() != nil {
			break
		}
		p := base.Offset(off.DLat, off.DLng)
		pa := r.orch.AnalyzePoint(ctx, p, dates, enabled)
		risk := domain.OverallRisk(pa.Result)
		if best != nil && risk >= best.RiskScore {
			continue
		}
		best = &AlternativeCandidate{
			Lat:        p.Lat,
			Lng:        p.Lng,
			Label:      domain.ReverseName(ctx, r.geocoder, p, r.logger),
			RiskScore:  risk,
			Provenance: pa.Provenance,
		}
	}
	return best
}
