package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RawPayload is the provider's per-variable daily data:
// variable code -> date key (YYYYMMDD) -> raw value (number or numeric string).
type RawPayload map[string]map[string]any

// NumericSeries is one variable's finite values in ascending date order.
type NumericSeries []float64

// DailySeries holds the normalized variables for one point and date range.
// Variables are not index-aligned: each keeps only the days it has values for.
type DailySeries struct {
	TempMax       NumericSeries `json:"tMax"`
	TempMin       NumericSeries `json:"tMin"`
	Precipitation NumericSeries `json:"prcp"`
	Wind          NumericSeries `json:"wind"`
	Humidity      NumericSeries `json:"rh"`

	byDate map[string]map[string]float64 // code -> date -> value
	dates  []string
}

// PowerFillValue is the value NASA POWER reports for days without data.
const PowerFillValue = -999.0

// NormalizeOptions tunes Normalize. The zero value keeps every parseable,
// finite number, including provider fill values.
type NormalizeOptions struct {
	DropFillValue bool
	FillValue     float64
}

// Normalize converts a raw payload into aligned numeric series and the sorted
// union of all date keys.
func Normalize(raw RawPayload) (DailySeries, []string) {
	return NormalizeWith(raw, NormalizeOptions{})
}

// NormalizeWith is Normalize with explicit options.
func NormalizeWith(raw RawPayload, opts NormalizeOptions) (DailySeries, []string) {
	ds := DailySeries{byDate: make(map[string]map[string]float64, len(VariableCodes))}

	seen := make(map[string]struct{})
	for _, code := range VariableCodes {
		for date := range raw[code] {
			seen[date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	// Fixed-width YYYYMMDD keys sort correctly as strings.
	sort.Strings(dates)
	ds.dates = dates

	for _, code := range VariableCodes {
		values := raw[code]
		parsed := make(map[string]float64, len(values))
		series := make(NumericSeries, 0, len(values))
		for _, date := range dates {
			v, ok := values[date]
			if !ok {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			if opts.DropFillValue && f == opts.FillValue {
				continue
			}
			parsed[date] = f
			series = append(series, f)
		}
		ds.byDate[code] = parsed
		ds.set(code, series)
	}

	out := make([]string, len(dates))
	copy(out, dates)
	return ds, out
}

func (d *DailySeries) set(code string, s NumericSeries) {
	switch code {
	case VarTempMax:
		d.TempMax = s
	case VarTempMin:
		d.TempMin = s
	case VarPrecipitation:
		d.Precipitation = s
	case VarWindSpeed:
		d.Wind = s
	case VarHumidity:
		d.Humidity = s
	}
}

// Variable returns the series for a provider variable code.
func (d DailySeries) Variable(code string) NumericSeries {
	switch code {
	case VarTempMax:
		return d.TempMax
	case VarTempMin:
		return d.TempMin
	case VarPrecipitation:
		return d.Precipitation
	case VarWindSpeed:
		return d.Wind
	case VarHumidity:
		return d.Humidity
	}
	return nil
}

// DailyRow is one date of the per-day breakdown. Nil fields are missing days.
type DailyRow struct {
	Date          string   `json:"date"`
	TempMax       *float64 `json:"tMax"`
	TempMin       *float64 `json:"tMin"`
	Precipitation *float64 `json:"prcp"`
	Wind          *float64 `json:"wind"`
	Humidity      *float64 `json:"rh"`
}

// Table returns one row per date key in ascending order.
func (d DailySeries) Table() []DailyRow {
	rows := make([]DailyRow, 0, len(d.dates))
	lookup := func(code, date string) *float64 {
		v, ok := d.byDate[code][date]
		if !ok {
			return nil
		}
		return &v
	}
	for _, date := range d.dates {
		rows = append(rows, DailyRow{
			Date:          date,
			TempMax:       lookup(VarTempMax, date),
			TempMin:       lookup(VarTempMin, date),
			Precipitation: lookup(VarPrecipitation, date),
			Wind:          lookup(VarWindSpeed, date),
			Humidity:      lookup(VarHumidity, date),
		})
	}
	return rows
}

// Empty reports whether no variable carries any value.
func (d DailySeries) Empty() bool {
	return len(d.TempMax)+len(d.TempMin)+len(d.Precipitation)+len(d.Wind)+len(d.Humidity) == 0
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Aggregates is the per-point scalar summary of a successful fetch.
type Aggregates struct {
	TempMaxAvg         float64 `json:"tMaxAvg"`
	TempMinAvg         float64 `json:"tMinAvg"`
	PrecipitationTotal float64 `json:"prcpTotal"`
	WindAvg            float64 `json:"windAvg"`
	HumidityAvg        float64 `json:"rhAvg"`
}

// ComputeAggregates summarizes a series. The mean of an empty series is 0.
func ComputeAggregates(ds DailySeries) Aggregates {
	return Aggregates{
		TempMaxAvg:         mean(ds.TempMax),
		TempMinAvg:         mean(ds.TempMin),
		PrecipitationTotal: sum(ds.Precipitation),
		WindAvg:            mean(ds.Wind),
		HumidityAvg:        mean(ds.Humidity),
	}
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}
