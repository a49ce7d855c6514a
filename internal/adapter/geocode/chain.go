// Package geocode composes geocoding providers: a fallback chain across
// upstreams and an instrumented LRU cache in front of it.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// Named pairs a provider with the name used in logs.
type Named struct {
	Name     string
	Provider domain.GeocodeProvider
}

// Chain tries each provider in order. The first successful search wins and
// reverse lookups stop at the first non-empty name.
type Chain struct {
	providers []Named
	logger    *slog.Logger
}

// NewChain creates a Chain. Providers are tried in the order given.
func NewChain(logger *slog.Logger, providers ...Named) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Search resolves text with the first provider that finds a match.
func (c *Chain) Search(ctx context.Context, text string) (domain.LatLng, error) {
	var errs []error
	for _, p := range c.providers {
		point, err := p.Provider.Search(ctx, text)
		if err == nil {
			return point, nil
		}
		if ctx.Err() != nil {
			return domain.LatLng{}, ctx.Err()
		}
		c.logger.Debug("geocode search failed, trying next provider",
			"provider", p.Name, "query", text, "error", err)
		errs = append(errs, err)
	}
	return domain.LatLng{}, exhausted("search", text, errs)
}

// Reverse returns the first non-empty place name. It returns "" and no error
// when every provider answered but none had a name.
func (c *Chain) Reverse(ctx context.Context, point domain.LatLng) (string, error) {
	var errs []error
	for _, p := range c.providers {
		name, err := p.Provider.Reverse(ctx, point)
		if err == nil && strings.TrimSpace(name) != "" {
			return name, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			c.logger.Debug("reverse geocode failed, trying next provider",
				"provider", p.Name, "point", point.String(), "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.providers) && len(errs) > 0 {
		return "", exhausted("reverse", point.String(), errs)
	}
	return "", nil
}

func exhausted(method, query string, errs []error) error {
	err := fmt.Errorf("%s %q: no provider could answer", method, query)
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", err, errors.Join(errs...))
	}
	return domain.NewProviderError("geocode", domain.ErrNotFound, 0, err)
}
