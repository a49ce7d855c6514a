package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

const samplePayload = "testdata/power_sample.json"

func TestRun_CSV(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{
		"-payload", samplePayload,
		"-lat", "40.71", "-lng", "-74.01",
		"-conditions", "temperature,wind",
		"-format", "csv",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	want := "Condition,Probability,Risk Level,Recommendations\n" +
		"temperature,25.0,low,Bring sunscreen; Stay hydrated; Wear light clothing\n" +
		"wind,50.0,medium,Secure loose items; Avoid high structures; Check wind warnings\n"
	assert.Equal(t, want, stdout.String())
}

func TestRun_DropFillValues(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{
		"-payload", samplePayload,
		"-conditions", "temperature",
		"-format", "csv",
		"-drop-fill",
	}, &stdout, &stderr)
	require.NoError(t, err)

	// Without the fill day, 1 of 3 maxima exceeds 35 °C and no minimum is below -5 °C.
	assert.Contains(t, stdout.String(), "temperature,33.3,medium,")
}

func TestRun_JSONIsReproducible(t *testing.T) {
	args := []string{
		"-payload", samplePayload,
		"-lat", "40.71", "-lng", "-74.01",
		"-name", "New York",
		"-id", "fixture-1",
		"-at", "2024-08-01",
		"-seed", "42",
	}
	var first, second, stderr bytes.Buffer
	require.NoError(t, run(args, &first, &stderr))
	require.NoError(t, run(args, &second, &stderr))

	assert.Equal(t, first.String(), second.String())

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(first.Bytes(), &snap))
	assert.Equal(t, "fixture-1", snap.ID)
	assert.Equal(t, "New York", snap.Location.Name)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), snap.Timestamp)
	assert.Len(t, snap.Analysis, len(domain.AllConditions))
	assert.InDelta(t, 25, snap.Analysis[domain.Precipitation].Probability, 0.001)
	assert.InDelta(t, 0, snap.Analysis[domain.AirQuality].Probability, 0)
	trend := snap.Analysis[domain.Wind].Trend
	require.Len(t, trend, 30)
	assert.Equal(t, time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC), trend[1].Date)
}

func TestRun_Summary(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"-payload", samplePayload, "-conditions", "wind,humidity", "-summary"}, &stdout, &stderr)
	require.NoError(t, err)

	out := stderr.String()
	assert.Contains(t, out, "=== 4 days (20240701..20240704) ===")
	assert.Contains(t, out, "- Wind Speed: 50.0% (medium risk)")
	assert.Contains(t, out, "Active Alerts:\nWind Speed: 50% (medium)")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no payload", []string{}, "missing required flag: -payload"},
		{"missing file", []string{"-payload", "testdata/nope.json"}, "read payload"},
		{"bad condition", []string{"-payload", samplePayload, "-conditions", "snow"}, "unknown condition"},
		{"bad coordinates", []string{"-payload", samplePayload, "-lat", "95"}, "invalid coordinates"},
		{"bad time", []string{"-payload", samplePayload, "-at", "yesterday"}, "invalid -at"},
		{"bad format", []string{"-payload", samplePayload, "-format", "xml"}, "unsupported export format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}
