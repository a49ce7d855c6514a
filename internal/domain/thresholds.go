package domain

// NASA POWER daily variable codes.
const (
	VarTempMax       = "T2M_MAX"
	VarTempMin       = "T2M_MIN"
	VarPrecipitation = "PRECTOTCORR"
	VarWindSpeed     = "WS10M"
	VarHumidity      = "RH2M"
)

// VariableCodes is the ordered list of codes requested from the data provider.
var VariableCodes = []string{VarTempMax, VarTempMin, VarPrecipitation, VarWindSpeed, VarHumidity}

// TemperatureLevels are in degrees Celsius.
type TemperatureLevels struct {
	VeryHot  float64
	Hot      float64
	Cold     float64
	VeryCold float64
}

// PrecipitationLevels are in millimetres per day.
type PrecipitationLevels struct {
	Light    float64
	Moderate float64
	Heavy    float64
	Extreme  float64
}

// WindLevels are in metres per second at 10 m.
type WindLevels struct {
	Calm       float64
	Light      float64
	Moderate   float64
	Strong     float64
	VeryStrong float64
}

// HumidityLevels are relative humidity percentages.
type HumidityLevels struct {
	Low         float64
	Comfortable float64
	High        float64
	VeryHigh    float64
}

// AQILevels are US AQI band upper bounds.
type AQILevels struct {
	Good               float64
	Moderate           float64
	UnhealthySensitive float64
	Unhealthy          float64
	VeryUnhealthy      float64
}

// Thresholds is the static variable-to-threshold configuration.
type Thresholds struct {
	Temperature   TemperatureLevels
	Precipitation PrecipitationLevels
	Wind          WindLevels
	Humidity      HumidityLevels
	AQI           AQILevels
}

// DefaultThresholds returns the production threshold model.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature:   TemperatureLevels{VeryHot: 35, Hot: 30, Cold: 5, VeryCold: -5},
		Precipitation: PrecipitationLevels{Light: 2.5, Moderate: 10, Heavy: 50, Extreme: 100},
		Wind:          WindLevels{Calm: 2, Light: 5, Moderate: 10, Strong: 15, VeryStrong: 25},
		Humidity:      HumidityLevels{Low: 30, Comfortable: 60, High: 80, VeryHigh: 90},
		AQI:           AQILevels{Good: 50, Moderate: 100, UnhealthySensitive: 150, Unhealthy: 200, VeryUnhealthy: 300},
	}
}
