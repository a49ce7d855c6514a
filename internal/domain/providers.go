package domain

import (
	"context"
	"fmt"
	"time"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// dateLayout is the ISO calendar date accepted from callers.
const dateLayout = "2006-01-02"

// compactLayout is the provider's YYYYMMDD date key.
const compactLayout = "20060102"

// ParseDateRange parses two YYYY-MM-DD strings. Both are required and start
// must not be after end.
func ParseDateRange(start, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidInput, start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidInput, end, err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidInput, start, end)
	}
	return DateRange{Start: s, End: e}, nil
}

// CompactStart returns the start date as YYYYMMDD.
func (r DateRange) CompactStart() string { return r.Start.Format(compactLayout) }

// CompactEnd returns the end date as YYYYMMDD.
func (r DateRange) CompactEnd() string { return r.End.Format(compactLayout) }

// String renders the range as "From 2024-01-01 to 2024-01-31".
func (r DateRange) String() string {
	return fmt.Sprintf("From %s to %s", r.Start.Format(dateLayout), r.End.Format(dateLayout))
}

// WeatherDataProvider fetches historical daily variables for a point.
type WeatherDataProvider interface {
	FetchDaily(ctx context.Context, point LatLng, dates DateRange, codes []string) (RawPayload, error)
}

// AirQualityProvider returns the latest reading from the station nearest the point.
type AirQualityProvider interface {
	FetchNearest(ctx context.Context, point LatLng) (*AirQualityReading, error)
}

// GeocodeProvider resolves free text to coordinates and coordinates to a name.
// Search returns ErrNotFound when nothing matches.
type GeocodeProvider interface {
	Search(ctx context.Context, text string) (LatLng, error)
	Reverse(ctx context.Context, point LatLng) (string, error)
}

// RouteProvider computes a driving route between two points.
type RouteProvider interface {
	Name() string
	Route(ctx context.Context, start, end LatLng) (Route, error)
}
