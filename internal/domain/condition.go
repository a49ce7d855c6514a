package domain

import (
	"fmt"
	"strings"
)

// Condition is one of the five tracked weather and air dimensions.
type Condition int

const (
	Temperature Condition = iota
	Precipitation
	Wind
	Humidity
	AirQuality
)

// AllConditions lists every condition in canonical display order.
var AllConditions = []Condition{Temperature, Precipitation, Wind, Humidity, AirQuality}

var conditionKeys = map[Condition]string{
	Temperature:   "temperature",
	Precipitation: "precipitation",
	Wind:          "wind",
	Humidity:      "humidity",
	AirQuality:    "airQuality",
}

var conditionNames = map[Condition]string{
	Temperature:   "Temperature Extremes",
	Precipitation: "Precipitation",
	Wind:          "Wind Speed",
	Humidity:      "Humidity",
	AirQuality:    "Air Quality",
}

var conditionRecommendations = map[Condition][]string{
	Temperature:   {"Bring sunscreen", "Stay hydrated", "Wear light clothing"},
	Precipitation: {"Carry an umbrella", "Wear waterproof clothing", "Plan indoor alternatives"},
	Wind:          {"Secure loose items", "Avoid high structures", "Check wind warnings"},
	Humidity:      {"Stay in air-conditioned areas", "Drink plenty of water", "Take breaks"},
	AirQuality:    {"Wear a mask if sensitive", "Limit outdoor activities", "Check air quality index"},
}

// String returns the wire key of the condition, e.g. "airQuality".
func (c Condition) String() string {
	if k, ok := conditionKeys[c]; ok {
		return k
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

// DisplayName returns the human-readable label used in exports and summaries.
func (c Condition) DisplayName() string {
	if n, ok := conditionNames[c]; ok {
		return n
	}
	return c.String()
}

// Recommendations returns a copy of the fixed advice list for the condition.
func (c Condition) Recommendations() []string {
	recs := conditionRecommendations[c]
	out := make([]string, len(recs))
	copy(out, recs)
	return out
}

// MarshalText encodes the condition as its wire key.
func (c Condition) MarshalText() ([]byte, error) {
	if _, ok := conditionKeys[c]; !ok {
		return nil, fmt.Errorf("unknown condition %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a wire key into a condition.
func (c *Condition) UnmarshalText(text []byte) error {
	parsed, err := ParseCondition(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCondition accepts the wire key case-insensitively, plus "air_quality".
func ParseCondition(s string) (Condition, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "")
	for c, k := range conditionKeys {
		if strings.ToLower(k) == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, s)
}

// ConditionSet is the set of conditions a caller enabled for an analysis.
type ConditionSet map[Condition]bool

// NewConditionSet builds a set from the given conditions.
func NewConditionSet(conds ...Condition) ConditionSet {
	set := make(ConditionSet, len(conds))
	for _, c := range conds {
		set[c] = true
	}
	return set
}

// AllEnabled returns a set with every condition enabled.
func AllEnabled() ConditionSet {
	return NewConditionSet(AllConditions...)
}

// ParseConditionSet parses wire keys into a set. An empty list enables all.
func ParseConditionSet(keys []string) (ConditionSet, error) {
	if len(keys) == 0 {
		return AllEnabled(), nil
	}
	set := make(ConditionSet, len(keys))
	for _, k := range keys {
		c, err := ParseCondition(k)
		if err != nil {
			return nil, err
		}
		set[c] = true
	}
	return set, nil
}

// Has reports whether the condition is enabled.
func (s ConditionSet) Has(c Condition) bool {
	return s[c]
}

// Ordered returns the enabled conditions in canonical order.
func (s ConditionSet) Ordered() []Condition {
	out := make([]Condition, 0, len(s))
	for _, c := range AllConditions {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

// RiskLevel is a discretized probability band.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk cutoffs in percent.
const (
	mediumRiskCutoff = 30
	highRiskCutoff   = 70
)

// RiskLevelFor maps a probability in [0,100] to its risk band:
// below 30 is low, below 70 is medium, anything else is high.
func RiskLevelFor(probability float64) RiskLevel {
	switch {
	case probability < mediumRiskCutoff:
		return RiskLow
	case probability < highRiskCutoff:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Provenance marks whether a result came from the live data provider or from
// the synthetic fallback.
type Provenance string

const (
	ProvenancePrimary  Provenance = "PRIMARY"
	ProvenanceFallback Provenance = "FALLBACK"
)
