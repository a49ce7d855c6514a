// Package osrm implements domain.RouteProvider against an OSRM routing server.
// ParseRoute also decodes the OSRM-compatible Mapbox Directions format.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const providerName = "osrm"

// Client requests driving routes from OSRM.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates an OSRM client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, userAgent string, opts ...upstream.Option) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient(providerName, timeout, userAgent, opts...),
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Route fetches the fastest driving route with full GeoJSON geometry and steps.
func (c *Client) Route(ctx context.Context, start, end domain.LatLng) (domain.Route, error) {
	params := url.Values{
		"overview":     {"full"},
		"geometries":   {"geojson"},
		"alternatives": {"false"},
		"steps":        {"true"},
		"annotations":  {"false"},
	}
	u := fmt.Sprintf("%s/route/v1/driving/%s?%s", c.baseURL, Waypoints(start, end), params.Encode())

	body, err := c.http.Get(ctx, u)
	if err != nil {
		return domain.Route{}, err
	}
	return ParseRoute(body, providerName)
}

// Waypoints renders "lon,lat;lon,lat" as both OSRM and Mapbox expect.
func Waypoints(points ...domain.LatLng) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	return strings.Join(parts, ";")
}

// ParseRoute decodes the first route of an OSRM-format response.
func ParseRoute(body []byte, provider string) (domain.Route, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Route{}, domain.NewProviderError(provider, domain.ErrMalformedResponse, 0, err)
	}
	if resp.Code != "" && !strings.EqualFold(resp.Code, "Ok") {
		return domain.Route{}, domain.NewProviderError(provider, domain.ErrNotFound, 0, fmt.Errorf("%s: %s", resp.Code, resp.Message))
	}
	if len(resp.Routes) == 0 {
		return domain.Route{}, domain.NewProviderError(provider, domain.ErrNotFound, 0, fmt.Errorf("no route found"))
	}

	r := resp.Routes[0]
	route := domain.Route{
		Coordinates: lineCoordinates(r.Geometry),
		Distance:    r.Distance,
		Duration:    r.Duration,
		Provider:    provider,
	}
	if len(route.Coordinates) == 0 {
		return domain.Route{}, domain.NewProviderError(provider, domain.ErrMalformedResponse, 0, fmt.Errorf("route geometry is not a line"))
	}
	if len(r.Legs) > 0 {
		for _, st := range r.Legs[0].Steps {
			route.Steps = append(route.Steps, domain.RouteStep{
				Name:        st.Name,
				Coordinates: lineCoordinates(st.Geometry),
			})
		}
	}
	return route, nil
}

func lineCoordinates(g *geojson.Geometry) []domain.LatLng {
	if g == nil {
		return nil
	}
	var pts []orb.Point
	switch geom := g.Geometry().(type) {
	case orb.LineString:
		pts = geom
	case orb.Point:
		pts = []orb.Point{geom}
	default:
		return nil
	}
	out := make([]domain.LatLng, len(pts))
	for i, p := range pts {
		out[i] = domain.FromPoint(p)
	}
	return out
}

// OSRM API response types.

type response struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []route `json:"routes"`
}

type route struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Distance float64           `json:"distance"` // metres
	Duration float64           `json:"duration"` // seconds
	Legs     []leg             `json:"legs"`
}

type leg struct {
	Steps []step `json:"steps"`
}

type step struct {
	Name     string            `json:"name"`
	Geometry *geojson.Geometry `json:"geometry"`
}
