package mapbox

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/osrm"
	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const (
	directionsProvider = "mapbox-directions"
	directionsBaseURL  = "https://api.mapbox.com/directions/v5/mapbox/driving"
)

// Directions implements domain.RouteProvider with the Mapbox Directions API.
// It serves as the secondary route provider behind OSRM.
type Directions struct {
	token   string
	baseURL string
	http    *upstream.Client
}

// NewDirections creates a Mapbox Directions client.
func NewDirections(token string, timeout time.Duration, userAgent string, opts ...upstream.Option) *Directions {
	return &Directions{
		token:   token,
		baseURL: directionsBaseURL,
		http:    upstream.NewClient(directionsProvider, timeout, userAgent, opts...),
	}
}

// Name identifies the provider in logs and metrics.
func (d *Directions) Name() string { return directionsProvider }

// Route fetches a driving route. The response format is OSRM-compatible.
func (d *Directions) Route(ctx context.Context, start, end domain.LatLng) (domain.Route, error) {
	params := url.Values{
		"access_token": {d.token},
		"geometries":   {"geojson"},
		"overview":     {"full"},
		"steps":        {"true"},
		"alternatives": {"false"},
	}
	u := fmt.Sprintf("%s/%s?%s", d.baseURL, url.PathEscape(osrm.Waypoints(start, end)), params.Encode())

	body, err := d.http.Get(ctx, u)
	if err != nil {
		return domain.Route{}, err
	}
	return osrm.ParseRoute(body, directionsProvider)
}
