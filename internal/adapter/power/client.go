// Package power implements domain.WeatherDataProvider against the NASA POWER
// daily point API.
package power

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-insight-service/internal/adapter/upstream"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const providerName = "power"

// Client fetches daily variables from NASA POWER.
type Client struct {
	baseURL   string
	community string
	http      *upstream.Client
	logger    *slog.Logger
}

// NewClient creates a POWER client.
func NewClient(baseURL, community string, timeout time.Duration, userAgent string, logger *slog.Logger, opts ...upstream.Option) *Client {
	return &Client{
		baseURL:   baseURL,
		community: community,
		http:      upstream.NewClient(providerName, timeout, userAgent, opts...),
		logger:    logger,
	}
}

// FetchDaily returns the raw per-variable payload for the point and dates.
// A response without a parameter block yields an empty payload.
func (c *Client) FetchDaily(ctx context.Context, point domain.LatLng, dates domain.DateRange, codes []string) (domain.RawPayload, error) {
	body, err := c.http.Get(ctx, c.buildURL(point, dates, codes))
	if err != nil {
		return nil, err
	}
	payload, err := ParseResponse(body)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		c.logger.Debug("power response has no parameter block", "lat", point.Lat, "lng", point.Lng)
	}
	return payload, nil
}

// ParseResponse extracts properties.parameter from a saved or live POWER
// response body.
func ParseResponse(body []byte) (domain.RawPayload, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewProviderError(providerName, domain.ErrMalformedResponse, 0, fmt.Errorf("decode response: %w", err))
	}
	if resp.Properties == nil || resp.Properties.Parameter == nil {
		return domain.RawPayload{}, nil
	}
	return resp.Properties.Parameter, nil
}

func (c *Client) buildURL(point domain.LatLng, dates domain.DateRange, codes []string) string {
	params := url.Values{
		"parameters": {strings.Join(codes, ",")},
		"community":  {c.community},
		"latitude":   {strconv.FormatFloat(point.Lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(point.Lng, 'f', -1, 64)},
		"start":      {dates.CompactStart()},
		"end":        {dates.CompactEnd()},
		"format":     {"JSON"},
	}
	return c.baseURL + "?" + params.Encode()
}

// POWER API response types.

type response struct {
	Properties *properties `json:"properties"`
}

type properties struct {
	Parameter domain.RawPayload `json:"parameter"`
}
