// Package nominatim implements domain.GeocodeProvider using the OpenStreetMap
// Nominatim search and reverse endpoints.
package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const providerName = "nominatim"

// Client geocodes through Nominatim. Nominatim's usage policy requires an
// identifying User-Agent.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates a Nominatim client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, userAgent string, opts ...upstream.Option) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient(providerName, timeout, userAgent, opts...),
	}
}

// Search returns the most important of up to three matches.
func (c *Client) Search(ctx context.Context, text string) (domain.LatLng, error) {
	params := url.Values{
		"format":          {"jsonv2"},
		"q":               {text},
		"limit":           {"3"},
		"addressdetails":  {"0"},
		"accept-language": {"en"},
	}

	var places []place
	if err := c.http.GetJSON(ctx, c.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return domain.LatLng{}, err
	}
	if len(places) == 0 {
		return domain.LatLng{}, domain.NewProviderError(providerName, domain.ErrNotFound, 0, fmt.Errorf("no match for %q", text))
	}

	best := places[0]
	for _, p := range places[1:] {
		if p.Importance > best.Importance {
			best = p
		}
	}
	return best.latLng()
}

// Reverse returns the display name at city-level zoom, or "" when there is none.
func (c *Client) Reverse(ctx context.Context, point domain.LatLng) (string, error) {
	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(point.Lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(point.Lng, 'f', -1, 64)},
		"zoom":           {"10"},
		"addressdetails": {"0"},
	}

	var p place
	if err := c.http.GetJSON(ctx, c.baseURL+"/reverse?"+params.Encode(), &p); err != nil {
		return "", err
	}
	return p.DisplayName, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func (p place) latLng() (domain.LatLng, error) {
	lat, err1 := strconv.ParseFloat(p.Lat, 64)
	lon, err2 := strconv.ParseFloat(p.Lon, 64)
	if err1 != nil || err2 != nil {
		return domain.LatLng{}, domain.NewProviderError(providerName, domain.ErrMalformedResponse, 0,
			fmt.Errorf("bad coordinates %q, %q", p.Lat, p.Lon))
	}
	return domain.LatLng{Lat: lat, Lng: lon}, nil
}
