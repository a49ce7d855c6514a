package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// coordPattern matches "lat, lon" or "lat lon" in decimal degrees.
var coordPattern = regexp.MustCompile(`^\s*([+-]?\d+(?:\.\d+)?)\s*[ ,]\s*([+-]?\d+(?:\.\d+)?)\s*$`)

var parenPattern = regexp.MustCompile(`\(.*?\)`)

// ParseCoordinates accepts raw "lat, lon" text. It returns false for anything
// that is not two numbers within valid ranges.
func ParseCoordinates(text string) (LatLng, bool) {
	m := coordPattern.FindStringSubmatch(text)
	if m == nil {
		return LatLng{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return LatLng{}, false
	}
	p := LatLng{Lat: lat, Lng: lng}
	if !p.Valid() {
		return LatLng{}, false
	}
	return p, true
}

// GeocodeCandidates returns query variations to try in order: the raw text,
// the text without parenthesized parts, and the first comma-separated part.
// Empty and duplicate variations are dropped.
func GeocodeCandidates(query string) []string {
	raw := strings.TrimSpace(query)
	first := raw
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			first = p
			break
		}
	}
	withoutParen := strings.TrimSpace(parenPattern.ReplaceAllString(raw, ""))

	seen := make(map[string]bool, 3)
	var out []string
	for _, c := range []string{raw, withoutParen, first} {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// simplifyPlace strips parenthesized parts and keeps the first comma part.
func simplifyPlace(text string) string {
	stripped := parenPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(strings.Split(stripped, ",")[0])
}

// ResolvePlace turns user text into coordinates. Raw coordinates are accepted
// without a provider call; otherwise each candidate is searched in turn, then
// a simplified form of the text as a second chance. Provider errors are
// logged and treated as no result.
func ResolvePlace(ctx context.Context, provider GeocodeProvider, text string, logger *slog.Logger) (LatLng, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return LatLng{}, fmt.Errorf("%w: empty place", ErrInvalidInput)
	}
	if p, ok := ParseCoordinates(text); ok {
		return p, nil
	}
	if provider == nil {
		return LatLng{}, fmt.Errorf("%w: %q (no geocoder configured)", ErrNotFound, text)
	}

	candidates := GeocodeCandidates(text)
	if simple := simplifyPlace(text); simple != "" {
		candidates = appendUnique(candidates, simple)
	}
	for _, q := range candidates {
		if p, ok := ParseCoordinates(q); ok {
			return p, nil
		}
		p, err := provider.Search(ctx, q)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return LatLng{}, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("geocode search failed", "query", q, "error", err)
		}
	}
	return LatLng{}, fmt.Errorf("%w: %q", ErrNotFound, text)
}

// ReverseName resolves a display name for the point. It never fails: errors
// are logged and yield an empty string.
func ReverseName(ctx context.Context, provider GeocodeProvider, p LatLng, logger *slog.Logger) string {
	if provider == nil {
		return ""
	}
	name, err := provider.Reverse(ctx, p)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", p.Lat,
			"lng", p.Lng,
			"error", err,
		)
		return ""
	}
	return name
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
