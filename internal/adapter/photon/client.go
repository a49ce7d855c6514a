// Package photon implements forward geocoding with the Komoot Photon API.
package photon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const providerName = "photon"

// Client geocodes through Photon. Photon answers in GeoJSON.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates a Photon client.
func NewClient(baseURL string, timeout time.Duration, userAgent string, opts ...upstream.Option) *Client {
	return &Client{
		baseURL: baseURL,
		http:    upstream.NewClient(providerName, timeout, userAgent, opts...),
	}
}

// Search returns the first matching feature's point.
func (c *Client) Search(ctx context.Context, text string) (domain.LatLng, error) {
	params := url.Values{
		"q":     {text},
		"limit": {"1"},
		"lang":  {"en"},
	}
	fc, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return domain.LatLng{}, err
	}
	for _, f := range fc.Features {
		if p, ok := featurePoint(f); ok {
			return p, nil
		}
	}
	return domain.LatLng{}, domain.NewProviderError(providerName, domain.ErrNotFound, 0, fmt.Errorf("no match for %q", text))
}

// Reverse returns "name, city, country" from Photon's reverse endpoint, or "".
func (c *Client) Reverse(ctx context.Context, point domain.LatLng) (string, error) {
	params := url.Values{
		"lat":  {strconv.FormatFloat(point.Lat, 'f', -1, 64)},
		"lon":  {strconv.FormatFloat(point.Lng, 'f', -1, 64)},
		"lang": {"en"},
	}
	fc, err := c.get(ctx, reverseURL(c.baseURL)+"?"+params.Encode())
	if err != nil {
		return "", err
	}
	if len(fc.Features) == 0 {
		return "", nil
	}
	return displayName(fc.Features[0]), nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*geojson.FeatureCollection, error) {
	body, err := c.http.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, domain.NewProviderError(providerName, domain.ErrMalformedResponse, 0, err)
	}
	return fc, nil
}

// reverseURL maps ".../api/" to ".../reverse".
func reverseURL(base string) string {
	trimmed := strings.TrimRight(base, "/")
	return strings.TrimSuffix(trimmed, "/api") + "/reverse"
}

func featurePoint(f *geojson.Feature) (domain.LatLng, bool) {
	if f == nil {
		return domain.LatLng{}, false
	}
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return domain.LatLng{}, false
	}
	p := domain.FromPoint(pt)
	return p, p.Valid()
}

func displayName(f *geojson.Feature) string {
	var parts []string
	for _, key := range []string{"name", "city", "state", "country"} {
		if v := f.Properties.MustString(key, ""); v != "" && (len(parts) == 0 || parts[len(parts)-1] != v) {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
