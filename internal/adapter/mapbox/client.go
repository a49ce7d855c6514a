// Package mapbox implements geocoding and driving directions on the Mapbox APIs.
package mapbox

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const (
	geocodingProvider = "mapbox-geocoding"
	geocodingBaseURL  = "https://api.mapbox.com/geocoding/v5/mapbox.places"
)

// Client implements domain.GeocodeProvider using the Mapbox Geocoding API.
type Client struct {
	token   string
	baseURL string
	http    *upstream.Client
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, userAgent string, opts ...upstream.Option) *Client {
	return &Client{
		token:   token,
		baseURL: geocodingBaseURL,
		http:    upstream.NewClient(geocodingProvider, timeout, userAgent, opts...),
	}
}

// Search converts free text to the best matching coordinates.
func (c *Client) Search(ctx context.Context, text string) (domain.LatLng, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(text))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"language":     {"en"},
	}

	f, err := c.first(ctx, u+"?"+params.Encode())
	if err != nil {
		return domain.LatLng{}, err
	}
	if f == nil || len(f.Center) != 2 {
		return domain.LatLng{}, domain.NewProviderError(geocodingProvider, domain.ErrNotFound, 0, fmt.Errorf("no match for %q", text))
	}
	return domain.LatLng{Lat: f.Center[1], Lng: f.Center[0]}, nil
}

// Reverse converts coordinates to a place name, or "" when there is none.
func (c *Client) Reverse(ctx context.Context, point domain.LatLng) (string, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", point.Lng, point.Lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality"},
	}

	f, err := c.first(ctx, u+"?"+params.Encode())
	if err != nil || f == nil {
		return "", err
	}
	return f.PlaceName, nil
}

func (c *Client) first(ctx context.Context, fullURL string) (*feature, error) {
	var resp response
	if err := c.http.GetJSON(ctx, fullURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Features) == 0 {
		return nil, nil
	}
	return &resp.Features[0], nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
