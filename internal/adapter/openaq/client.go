// Package openaq implements domain.AirQualityProvider using the OpenAQ
// latest-measurements endpoint.
package openaq

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const (
	providerName = "openaq"
	searchRadius = "25000" // metres
)

// Client returns the latest reading from the station nearest a point.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates an OpenAQ client.
func NewClient(baseURL string, timeout time.Duration, userAgent string, opts ...upstream.Option) *Client {
	return &Client{
		baseURL: baseURL,
		http:    upstream.NewClient(providerName, timeout, userAgent, opts...),
	}
}

// FetchNearest returns the nearest station's latest pollutant values. Without
// a station in range it returns domain.ErrNotFound.
func (c *Client) FetchNearest(ctx context.Context, point domain.LatLng) (*domain.AirQualityReading, error) {
	params := url.Values{
		"coordinates": {fmt.Sprintf("%g,%g", point.Lat, point.Lng)},
		"radius":      {searchRadius},
		"limit":       {"1"},
		"parameter":   {"pm25", "pm10", "o3", "no2"},
		"order_by":    {"distance"},
	}

	var resp response
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, domain.NewProviderError(providerName, domain.ErrNotFound, 0, nil)
	}

	reading := &domain.AirQualityReading{}
	for _, m := range resp.Results[0].Measurements {
		v := m.Value
		switch m.Parameter {
		case "pm25":
			reading.PM25 = &v
		case "pm10":
			reading.PM10 = &v
		case "o3":
			reading.O3 = &v
		case "no2":
			reading.NO2 = &v
		}
	}
	return reading, nil
}

// OpenAQ API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Location     string        `json:"location"`
	Measurements []measurement `json:"measurements"`
}

type measurement struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
}
