package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// DefaultGridSize is the per-axis sample count for area analysis.
const DefaultGridSize = 3

// LatLng is a sample point in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to an orb point (x = longitude, y = latitude).
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Offset returns the point shifted by the given degrees.
func (p LatLng) Offset(dLat, dLng float64) LatLng {
	return LatLng{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// String formats the point as "lat, lng" with three decimals.
func (p LatLng) String() string {
	return fmt.Sprintf("%.3f, %.3f", p.Lat, p.Lng)
}

// Valid reports whether the point is within latitude/longitude ranges.
func (p LatLng) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// FromPoint converts an orb point back to a LatLng.
func FromPoint(pt orb.Point) LatLng {
	return LatLng{Lat: pt.Lat(), Lng: pt.Lon()}
}

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the bounding box of the given points.
func BoundsOf(points []LatLng) Bounds {
	ring := make(orb.Ring, len(points))
	for i, p := range points {
		ring[i] = p.Point()
	}
	b := ring.Bound()
	return Bounds{South: b.Min.Lat(), West: b.Min.Lon(), North: b.Max.Lat(), East: b.Max.Lon()}
}

// SampleRectangle returns an n×n grid strictly inside the bounds, latitude
// rows outer and longitude columns inner. n <= 0 uses DefaultGridSize.
func SampleRectangle(b Bounds, n int) []LatLng {
	if n <= 0 {
		n = DefaultGridSize
	}
	latStep := (b.North - b.South) / float64(n+1)
	lngStep := (b.East - b.West) / float64(n+1)
	points := make([]LatLng, 0, n*n)
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			points = append(points, LatLng{
				Lat: b.South + latStep*float64(i),
				Lng: b.West + lngStep*float64(j),
			})
		}
	}
	return points
}

// ContainsFunc reports whether a point lies inside a shape.
type ContainsFunc func(LatLng) bool

// PolygonContainer returns a planar point-in-polygon test for the ring.
func PolygonContainer(ring []LatLng) ContainsFunc {
	r := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		r = append(r, p.Point())
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	poly := orb.Polygon{r}
	return func(p LatLng) bool {
		return planar.PolygonContains(poly, p.Point())
	}
}

// SamplePolygon grids the ring's bounding box and keeps the points inside it.
// With a nil contains every grid point is kept.
func SamplePolygon(ring []LatLng, n int, contains ContainsFunc) []LatLng {
	if len(ring) == 0 {
		return nil
	}
	grid := SampleRectangle(BoundsOf(ring), n)
	if contains == nil {
		return grid
	}
	points := grid[:0]
	for _, p := range grid {
		if contains(p) {
			points = append(points, p)
		}
	}
	return points
}

// Shape is a user-selected area: exactly one of Rectangle or Polygon is set.
type Shape struct {
	Rectangle *Bounds  `json:"rectangle,omitempty"`
	Polygon   []LatLng `json:"polygon,omitempty"`
}

// Validate checks that the shape is usable for sampling.
func (s Shape) Validate() error {
	switch {
	case s.Rectangle != nil && len(s.Polygon) > 0:
		return fmt.Errorf("%w: shape must be a rectangle or a polygon, not both", ErrInvalidInput)
	case s.Rectangle != nil:
		if s.Rectangle.North <= s.Rectangle.South || s.Rectangle.East <= s.Rectangle.West {
			return fmt.Errorf("%w: rectangle bounds are empty", ErrInvalidInput)
		}
		return nil
	case len(s.Polygon) >= 3:
		return nil
	default:
		return fmt.Errorf("%w: polygon needs at least 3 vertices", ErrInvalidInput)
	}
}

// Sample returns the representative points of the shape. A polygon whose
// grid misses its interior (thin or concave rings) falls back to its area
// centroid when that lies inside, otherwise to its distinct vertices.
func (s Shape) Sample(n int) []LatLng {
	if s.Rectangle != nil {
		return SampleRectangle(*s.Rectangle, n)
	}
	contains := PolygonContainer(s.Polygon)
	if points := SamplePolygon(s.Polygon, n, contains); len(points) > 0 {
		return points
	}
	return polygonFallback(s.Polygon, contains)
}

func polygonFallback(ring []LatLng, contains ContainsFunc) []LatLng {
	if len(ring) == 0 {
		return nil
	}
	r := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		r = append(r, p.Point())
	}
	if !r.Closed() {
		r = append(r, r[0])
	}
	if c, area := planar.CentroidArea(orb.Polygon{r}); area != 0 {
		if centroid := FromPoint(c); contains(centroid) {
			return []LatLng{centroid}
		}
	}

	seen := make(map[LatLng]bool, len(ring))
	points := make([]LatLng, 0, len(ring))
	for _, p := range ring {
		if seen[p] {
			continue
		}
		seen[p] = true
		points = append(points, p)
	}
	return points
}

// Centroid returns the centre of the shape's bounding box.
func (s Shape) Centroid() LatLng {
	b := Bounds{}
	if s.Rectangle != nil {
		b = *s.Rectangle
	} else if len(s.Polygon) > 0 {
		b = BoundsOf(s.Polygon)
	}
	return LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// RouteStep is one maneuver of a route with its own sub-path.
type RouteStep struct {
	Name        string   `json:"name,omitempty"`
	Coordinates []LatLng `json:"coordinates"`
}

// Route is the output of a routing provider.
type Route struct {
	Coordinates []LatLng    `json:"coordinates"`
	Distance    float64     `json:"distance_m"`
	Duration    float64     `json:"duration_s"`
	Steps       []RouteStep `json:"steps,omitempty"`
	Provider    string      `json:"provider"`
}

// Route sampling bounds for the evenly spaced fallback.
const (
	minRouteSamples = 3
	maxRouteSamples = 8
)

// SampleRoute picks one point per step (the middle vertex of its sub-path).
// Without usable steps it spreads clamp(3, 8, len/10) points evenly across the
// full path, excluding both endpoints.
func SampleRoute(r Route) []LatLng {
	var samples []LatLng
	for _, st := range r.Steps {
		if len(st.Coordinates) == 0 {
			continue
		}
		samples = append(samples, st.Coordinates[len(st.Coordinates)/2])
	}
	if len(samples) > 0 {
		return samples
	}

	total := len(r.Coordinates)
	if total == 0 {
		return nil
	}
	n := min(maxRouteSamples, max(minRouteSamples, total/10))
	samples = make([]LatLng, 0, n)
	last := -1
	for i := 1; i <= n; i++ {
		idx := int(math.Floor(float64(i) / float64(n+1) * float64(total-1)))
		if idx == last {
			continue
		}
		last = idx
		samples = append(samples, r.Coordinates[idx])
	}
	return samples
}

// HaversineKm is the great-circle distance between two points in kilometres.
func HaversineKm(a, b LatLng) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point()) / 1000
}

// FormatDistance renders metres as "850 m", "4.2 km" or "120 km".
func FormatDistance(meters float64) string {
	if meters <= 0 {
		return "0 m"
	}
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	km := meters / 1000
	if km < 10 {
		return fmt.Sprintf("%.1f km", km)
	}
	return fmt.Sprintf("%.0f km", km)
}

// FormatDuration renders seconds as "45 min" or "2 hr 5 min".
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0 min"
	}
	hrs := int(seconds / 3600)
	mins := int(math.Round(math.Mod(seconds, 3600) / 60))
	if hrs > 0 {
		return fmt.Sprintf("%d hr %d min", hrs, mins)
	}
	return fmt.Sprintf("%d min", mins)
}
