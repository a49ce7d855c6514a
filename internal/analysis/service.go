package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

const (
	kindAlternatives = "alternatives"

	defaultPublishTimeout = 10 * time.Second
)

// SnapshotPublisher delivers finished analyses to downstream consumers.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s domain.Snapshot) error
}

// ServiceConfig holds the optional collaborators of a Service.
type ServiceConfig struct {
	Geocoder       domain.GeocodeProvider
	Planner        *RoutePlanner
	Publisher      SnapshotPublisher
	PublishTimeout time.Duration
	GridSize       int
}

// Service is the entry point for every analysis. It tracks the latest
// result for export and publishes snapshots when a publisher is configured.
type Service struct {
	orch           *Orchestrator
	ranker         *AlternativeRanker
	planner        *RoutePlanner
	geocoder       domain.GeocodeProvider
	publisher      SnapshotPublisher
	publishTimeout time.Duration
	publishes      sync.WaitGroup
	gridSize       int
	latest         LatestSlot
	logger         *slog.Logger
	metrics        *observability.Metrics
	ready          atomic.Bool
}

// NewService creates a Service around an orchestrator.
func NewService(orch *Orchestrator, cfg ServiceConfig, logger *slog.Logger, metrics *observability.Metrics) *Service {
	grid := cfg.GridSize
	if grid <= 0 {
		grid = domain.DefaultGridSize
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &Service{
		orch:           orch,
		ranker:         NewAlternativeRanker(orch, cfg.Geocoder, logger),
		planner:        cfg.Planner,
		geocoder:       cfg.Geocoder,
		publisher:      cfg.Publisher,
		publishTimeout: publishTimeout,
		gridSize:       grid,
		logger:         logger,
		metrics:        metrics,
	}
}

// MarkReady flags the service as able to take requests.
func (s *Service) MarkReady() {
	s.ready.Store(true)
	s.metrics.ServiceReady.Set(1)
}

// MarkNotReady flags the service as draining.
func (s *Service) MarkNotReady() {
	s.ready.Store(false)
	s.metrics.ServiceReady.Set(0)
}

// CheckReadiness returns nil once the service has been wired and marked ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("service is not ready")
	}
	return nil
}

// Latest returns the most recent committed snapshot.
func (s *Service) Latest() (domain.Snapshot, bool) {
	return s.latest.Latest()
}

// AnalyzePoint analyses a single location and records it as the latest result.
func (s *Service) AnalyzePoint(ctx context.Context, point domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) (PointAnalysis, error) {
	if !point.Valid() {
		return PointAnalysis{}, fmt.Errorf("%w: coordinates out of range: %s", domain.ErrInvalidInput, point)
	}
	seq := s.latest.Begin()
	start := time.Now()

	pa := s.orch.AnalyzePoint(ctx, point, dates, enabled)
	loc := domain.Location{LatLng: point, Name: domain.ReverseName(ctx, s.geocoder, point, s.logger)}
	s.record(ctx, seq, start, domain.KindPoint, loc, pa.Provenance, pa.Result)
	return pa, nil
}

// AnalyzeArea analyses a drawn shape. grid <= 0 uses the configured grid size.
func (s *Service) AnalyzeArea(ctx context.Context, shape domain.Shape, grid int, dates domain.DateRange, enabled domain.ConditionSet) (AreaAnalysis, error) {
	if grid <= 0 {
		grid = s.gridSize
	}
	seq := s.latest.Begin()
	start := time.Now()

	area, err := s.orch.AnalyzeArea(ctx, shape, grid, dates, enabled)
	if err != nil {
		return AreaAnalysis{}, err
	}
	loc := domain.Location{LatLng: area.Centroid, Name: "Selected area"}
	s.record(ctx, seq, start, domain.KindArea, loc, area.Provenance, area.Result)
	return area, nil
}

// PlanRoute resolves and analyses a route. The latest result becomes the
// average over all segments, located at the start point.
func (s *Service) PlanRoute(ctx context.Context, startText, endText string, dates domain.DateRange, enabled domain.ConditionSet) (RoutePlan, error) {
	if s.planner == nil {
		return RoutePlan{}, errors.New("route planning is not configured")
	}
	seq := s.latest.Begin()
	start := time.Now()

	plan, err := s.planner.Plan(ctx, startText, endText, dates, enabled)
	if err != nil {
		return RoutePlan{}, err
	}

	results := make([]domain.AnalysisResult, len(plan.Segments))
	for i, seg := range plan.Segments {
		results[i] = seg.Result
	}
	loc := domain.Location{LatLng: plan.Start, Name: startText + " → " + endText}
	s.record(ctx, seq, start, domain.KindRoute, loc, plan.Provenance, s.orch.Engine().Aggregate(results))
	return plan, nil
}

// FindAlternatives ranks nearby points by overall risk. It does not replace
// the latest result.
func (s *Service) FindAlternatives(ctx context.Context, base domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) ([]AlternativeCandidate, error) {
	if !base.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range: %s", domain.ErrInvalidInput, base)
	}
	start := time.Now()
	alts := s.ranker.FindAlternatives(ctx, base, dates, enabled)
	s.metrics.AnalysisDuration.WithLabelValues(kindAlternatives).Observe(time.Since(start).Seconds())
	for _, a := range alts {
		s.metrics.Analyses.WithLabelValues(kindAlternatives, string(a.Provenance)).Inc()
	}
	return alts, nil
}

// Reply answers an assistant message. A place in the message is analysed
// and described directly; otherwise the latest result is used.
func (s *Service) Reply(ctx context.Context, message string, dates domain.DateRange, enabled domain.ConditionSet) (string, error) {
	intent := domain.ParseIntent(message)

	var (
		base   domain.LatLng
		result domain.AnalysisResult
	)
	if intent.Place != "" {
		p, err := domain.ResolvePlace(ctx, s.geocoder, intent.Place, s.logger)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("I couldn't find %q. Please try a more specific place name (city, region, country) or coordinates like \"48.8566, 2.3522\".", intent.Place), nil
		}
		if err != nil {
			return "", err
		}
		pa, err := s.AnalyzePoint(ctx, p, dates, enabled)
		if err != nil {
			return "", err
		}
		base, result = p, pa.Result
	} else {
		snap, ok := s.latest.Latest()
		if !ok {
			return "Hello! I'm your Weather Assistant. Analyze a location first, or ask me to analyze a place (e.g., 'Analyze Paris').", nil
		}
		base, result = snap.Location.LatLng, snap.Analysis
	}

	switch {
	case intent.Condition != nil:
		return domain.DescribeCondition(result, *intent.Condition), nil
	case intent.AskAlternatives:
		return s.describeAlternatives(ctx, base, dates, enabled), nil
	case intent.AskAlerts:
		return domain.DescribeAlerts(domain.BuildAlerts(result)), nil
	default:
		return "Here's a summary for your current selection:\n" + domain.Summarize(result), nil
	}
}

func (s *Service) describeAlternatives(ctx context.Context, base domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) string {
	alts, err := s.FindAlternatives(ctx, base, dates, enabled)
	if err != nil || len(alts) == 0 {
		return "I couldn't find safer nearby alternatives at the moment."
	}
	lines := make([]string, 0, len(alts))
	for _, a := range alts {
		lines = append(lines, fmt.Sprintf("- %s: %.1f%%", a.DisplayLabel(), a.RiskScore))
	}
	return "Here are nearby lower-risk alternatives based on overall probability:\n" + strings.Join(lines, "\n")
}

// Drain waits for in-flight snapshot publishes, or until ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.publishes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record stamps a snapshot, offers it to the latest slot and publishes it in
// the background.
func (s *Service) record(ctx context.Context, seq uint64, start time.Time, kind domain.AnalysisKind, loc domain.Location, prov domain.Provenance, result domain.AnalysisResult) {
	s.metrics.Analyses.WithLabelValues(string(kind), string(prov)).Inc()
	s.metrics.AnalysisDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	snap := domain.NewSnapshot(kind, loc, prov, result)
	if !s.latest.Commit(seq, snap) {
		s.metrics.StaleResults.Inc()
		s.logger.Debug("discarding stale analysis", "kind", kind, "seq", seq)
	}

	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	s.publishes.Add(1)
	go func() {
		defer s.publishes.Done()
		defer cancel()
		s.publish(pctx, snap)
	}()
}

func (s *Service) publish(ctx context.Context, snap domain.Snapshot) {
	if err := s.publisher.Publish(ctx, snap); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish snapshot failed", "id", snap.ID, "kind", snap.Kind, "error", err)
		return
	}
	s.metrics.SnapshotsPublished.Inc()
}
