package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) Snapshot {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	result := AnalysisResult{
		Wind: {
			Probability:     12.345,
			Risk:            RiskLow,
			Recommendations: Wind.Recommendations(),
		},
		Temperature: {
			Probability:     66.666,
			Risk:            RiskMedium,
			Recommendations: Temperature.Recommendations(),
		},
	}
	loc := Location{LatLng: LatLng{Lat: 40.7, Lng: -74.0}, Name: "New York"}
	return NewSnapshot(KindPoint, loc, ProvenancePrimary, result)
}

func TestNewSnapshot(t *testing.T) {
	s := testSnapshot(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, KindPoint, s.Kind)
	assert.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), s.Timestamp)
	assert.Equal(t, ProvenancePrimary, s.Provenance)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSnapshot(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Condition,Probability,Risk Level,Recommendations", lines[0])
	assert.Equal(t, "temperature,66.7,medium,Bring sunscreen; Stay hydrated; Wear light clothing", lines[1])
	assert.Equal(t, "wind,12.3,low,Secure loose items; Avoid high structures; Check wind warnings", lines[2])
}

func TestWriteCSV_QuotesCommas(t *testing.T) {
	s := Snapshot{Analysis: AnalysisResult{
		Humidity: {Probability: 1, Risk: RiskLow, Recommendations: []string{"Rest, then drink"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))

	assert.Contains(t, buf.String(), `humidity,1.0,low,"Rest, then drink"`)
}

func TestWriteJSON(t *testing.T) {
	s := testSnapshot(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, s))

	assert.Contains(t, buf.String(), "\n  \"kind\": \"point\"", "two-space indent")

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.ID, decoded.ID)
	assert.Equal(t, "New York", decoded.Location.Name)
	assert.Equal(t, 40.7, decoded.Location.Lat)
	assert.Equal(t, s.Analysis[Temperature].Probability, decoded.Analysis[Temperature].Probability)
	assert.Equal(t, s.Analysis[Wind].Recommendations, decoded.Analysis[Wind].Recommendations)
}

func TestExport_Format(t *testing.T) {
	s := testSnapshot(t)
	var buf bytes.Buffer

	require.NoError(t, Export(&buf, s, "CSV"))
	assert.True(t, strings.HasPrefix(buf.String(), "Condition,"))

	err := Export(&buf, s, "xml")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 7, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "weather-analysis-2024-07-01.csv", ExportFilename("csv", at))
	assert.Equal(t, "weather-analysis-2024-07-01.json", ExportFilename("JSON", at))
}
