package domain

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Comparison selects how values are tested against a threshold.
type Comparison int

const (
	Above   Comparison = iota // strictly greater than Value
	Below                     // strictly less than Value
	Between                   // within [Min, Max] inclusive
)

// Threshold is a single cutoff or an inclusive range, depending on the comparison.
type Threshold struct {
	Value float64
	Min   float64
	Max   float64
}

// At is a single-value threshold.
func At(v float64) Threshold { return Threshold{Value: v} }

// Range is an inclusive [min, max] threshold.
func Range(minV, maxV float64) Threshold { return Threshold{Min: minV, Max: maxV} }

// CalculateProbability returns the percentage of values crossing the threshold.
// Values equal to a single threshold count as neither above nor below.
func CalculateProbability(series []float64, t Threshold, cmp Comparison) float64 {
	if len(series) == 0 {
		return 0
	}
	var hits int
	for _, v := range series {
		switch cmp {
		case Above:
			if v > t.Value {
				hits++
			}
		case Below:
			if v < t.Value {
				hits++
			}
		case Between:
			if v >= t.Min && v <= t.Max {
				hits++
			}
		}
	}
	return float64(hits) / float64(len(series)) * 100
}

// AirQualityReading is a single instantaneous reading from the nearest station.
// Nil fields were not reported.
type AirQualityReading struct {
	PM25 *float64 `json:"pm25,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	O3   *float64 `json:"o3,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
}

// AirQualityProbability maps PM2.5 (µg/m³) linearly onto [0,100]. It is a
// point-in-time proxy, not a historical frequency like the other conditions.
func AirQualityProbability(air *AirQualityReading) float64 {
	if air == nil || air.PM25 == nil {
		return 0
	}
	return clamp(*air.PM25/100*100, 0, 100)
}

// TrendPoint is one day of the display-only trend line.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ConditionResult is the outcome for a single condition.
type ConditionResult struct {
	Probability     float64      `json:"probability"`
	Risk            RiskLevel    `json:"risk"`
	Trend           []TrendPoint `json:"trend"`
	Recommendations []string     `json:"recommendations"`
}

// AnalysisResult holds one entry per enabled condition.
type AnalysisResult map[Condition]ConditionResult

// Has reports whether the result carries the condition.
func (r AnalysisResult) Has(c Condition) bool {
	_, ok := r[c]
	return ok
}

// OverallRisk is the mean probability across present conditions, 0 when empty.
func OverallRisk(r AnalysisResult) float64 {
	if len(r) == 0 {
		return 0
	}
	var total float64
	for _, cr := range r {
		total += cr.Probability
	}
	return total / float64(len(r))
}

// RandomSource yields uniform values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

const trendDays = 30

// Engine turns normalized series into per-condition results.
type Engine struct {
	thresholds Thresholds

	mu  sync.Mutex
	rng RandomSource
}

// NewEngine creates an Engine. A nil rng uses the process-wide generator.
func NewEngine(th Thresholds, rng RandomSource) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{thresholds: th, rng: rng}
}

// Thresholds returns the engine's threshold model.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Compute derives a ConditionResult for every enabled condition.
func (e *Engine) Compute(ds DailySeries, air *AirQualityReading, enabled ConditionSet) AnalysisResult {
	th := e.thresholds
	out := make(AnalysisResult, len(enabled))
	for _, c := range enabled.Ordered() {
		var p float64
		switch c {
		case Temperature:
			hot := CalculateProbability(ds.TempMax, At(th.Temperature.VeryHot), Above)
			cold := CalculateProbability(ds.TempMin, At(th.Temperature.VeryCold), Below)
			p = math.Max(hot, cold)
		case Precipitation:
			p = CalculateProbability(ds.Precipitation, At(th.Precipitation.Heavy), Above)
		case Wind:
			p = CalculateProbability(ds.Wind, At(th.Wind.Strong), Above)
		case Humidity:
			p = CalculateProbability(ds.Humidity, At(th.Humidity.VeryHigh), Above)
		case AirQuality:
			p = AirQualityProbability(air)
		}
		out[c] = e.result(c, p)
	}
	return out
}

// Synthetic draws a uniform random probability for each enabled condition.
// The values carry no meaning and are only used when live data is unavailable.
func (e *Engine) Synthetic(enabled ConditionSet) AnalysisResult {
	out := make(AnalysisResult, len(enabled))
	for _, c := range enabled.Ordered() {
		out[c] = e.result(c, e.float()*100)
	}
	return out
}

// Aggregate averages each condition over the results that carry it. A
// condition missing from a result does not count as zero.
func (e *Engine) Aggregate(results []AnalysisResult) AnalysisResult {
	out := make(AnalysisResult)
	for _, c := range AllConditions {
		var total float64
		var n int
		for _, r := range results {
			cr, ok := r[c]
			if !ok || math.IsNaN(cr.Probability) {
				continue
			}
			total += cr.Probability
			n++
		}
		if n > 0 {
			out[c] = e.result(c, total/float64(n))
		}
	}
	return out
}

func (e *Engine) result(c Condition, p float64) ConditionResult {
	return ConditionResult{
		Probability:     p,
		Risk:            RiskLevelFor(p),
		Trend:           e.trend(),
		Recommendations: c.Recommendations(),
	}
}

// trend is cosmetic: thirty daily points from now with random values.
func (e *Engine) trend() []TrendPoint {
	now := clock.Now()
	points := make([]TrendPoint, trendDays)
	for i := range points {
		points[i] = TrendPoint{
			Date:  now.Add(time.Duration(i) * 24 * time.Hour),
			Value: e.float() * 100,
		}
	}
	return points
}

func (e *Engine) float() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
