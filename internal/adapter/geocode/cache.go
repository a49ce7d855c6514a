package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
	"github.com/couchcryptid/weather-insight-service/internal/observability"
)

const (
	methodSearch  = "search"
	methodReverse = "reverse"
)

// Cached wraps a GeocodeProvider with an in-memory LRU cache and records
// request, cache, and latency metrics. Only successful, non-empty answers
// are stored.
type Cached struct {
	inner   domain.GeocodeProvider
	search  *lru.Cache[string, domain.LatLng]
	reverse *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewCached creates a cache decorator holding up to maxEntries results per
// method. maxEntries must be positive.
func NewCached(inner domain.GeocodeProvider, maxEntries int, metrics *observability.Metrics) (*Cached, error) {
	search, err := lru.New[string, domain.LatLng](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("geocode search cache: %w", err)
	}
	reverse, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("geocode reverse cache: %w", err)
	}
	return &Cached{
		inner:   inner,
		search:  search,
		reverse: reverse,
		metrics: metrics,
	}, nil
}

func (c *Cached) Search(ctx context.Context, text string) (domain.LatLng, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if point, ok := c.search.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues(methodSearch, "hit").Inc()
		return point, nil
	}
	c.metrics.GeocodeCache.WithLabelValues(methodSearch, "miss").Inc()

	start := time.Now()
	point, err := c.inner.Search(ctx, text)
	c.metrics.GeocodeAPIDuration.WithLabelValues(methodSearch).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(methodSearch, "error").Inc()
		return point, err
	}
	c.metrics.GeocodeRequests.WithLabelValues(methodSearch, "success").Inc()
	c.search.Add(key, point)
	return point, nil
}

func (c *Cached) Reverse(ctx context.Context, point domain.LatLng) (string, error) {
	key := fmt.Sprintf("%.6f,%.6f", point.Lat, point.Lng)
	if name, ok := c.reverse.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues(methodReverse, "hit").Inc()
		return name, nil
	}
	c.metrics.GeocodeCache.WithLabelValues(methodReverse, "miss").Inc()

	start := time.Now()
	name, err := c.inner.Reverse(ctx, point)
	c.metrics.GeocodeAPIDuration.WithLabelValues(methodReverse).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(methodReverse, "error").Inc()
		return name, err
	case name == "":
		// Empty answers are not cached so they can be retried later.
		c.metrics.GeocodeRequests.WithLabelValues(methodReverse, "empty").Inc()
		return name, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues(methodReverse, "success").Inc()
	c.reverse.Add(key, name)
	return name, nil
}
