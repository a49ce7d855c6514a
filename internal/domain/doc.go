// Package domain models historical weather-risk analysis for a point, an area,
// or a driving route.
//
// # Data Source
//
// Daily variables come from the NASA POWER "temporal/daily/point" API
// (https://power.larc.nasa.gov/). The service requests five parameters for the
// Renewable Energy community:
//
//	T2M_MAX      maximum air temperature at 2 m, °C
//	T2M_MIN      minimum air temperature at 2 m, °C
//	PRECTOTCORR  bias-corrected total precipitation, mm/day
//	WS10M        wind speed at 10 m, m/s
//	RH2M         relative humidity at 2 m, %
//
// The payload maps each parameter to an object keyed by YYYYMMDD date strings.
// Keys are fixed width, so lexicographic order is chronological order. Days
// missing from one parameter may be present in another, so series are never
// index-aligned across variables.
//
// Fill values:
//
//	POWER reports -999 for days it has no data for. [Normalize] keeps every
//	parseable finite number, fill values included; [NormalizeWith] can drop
//	them when the caller opts in.
//
// # Probability Model
//
// A condition's probability is the share of days crossing a fixed threshold
// (see [DefaultThresholds]). Comparisons are strict, so a value equal to the
// threshold is neither above nor below it:
//
//	Temperature    max(P(T2M_MAX > 35), P(T2M_MIN < -5))
//	Precipitation  P(PRECTOTCORR > 50)
//	Wind           P(WS10M > 15)
//	Humidity       P(RH2M > 90)
//	Air quality    clamp(PM2.5 µg/m³, 0, 100) from one current OpenAQ reading
//
// Air quality is a point-in-time proxy, not a historical frequency.
//
// Risk levels are a pure step function of probability:
//
//	<30 low | <70 medium | otherwise high
//
// When live data is unavailable the orchestrator substitutes uniform random
// probabilities and marks the result [ProvenanceFallback].
//
// # Sampling
//
// Areas are represented by an N×N interior grid (default 3×3); polygons keep
// only grid points inside the ring. Routes are sampled at the middle vertex of
// each step, or at 3 to 8 evenly spaced vertices when no steps are available.
package domain
