package domain

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisKind identifies what produced a snapshot.
type AnalysisKind string

const (
	KindPoint AnalysisKind = "point"
	KindArea  AnalysisKind = "area"
	KindRoute AnalysisKind = "route"
)

// Location is the subject of a snapshot.
type Location struct {
	LatLng
	Name string `json:"name,omitempty"`
}

// Snapshot is the exportable record of one finished analysis.
type Snapshot struct {
	ID         string         `json:"id"`
	Kind       AnalysisKind   `json:"kind"`
	Location   Location       `json:"location"`
	Timestamp  time.Time      `json:"timestamp"`
	Provenance Provenance     `json:"provenance"`
	Analysis   AnalysisResult `json:"analysis"`
}

// NewSnapshot stamps a result with a fresh ID and the current time.
func NewSnapshot(kind AnalysisKind, loc Location, prov Provenance, result AnalysisResult) Snapshot {
	return Snapshot{
		ID:         uuid.NewString(),
		Kind:       kind,
		Location:   loc,
		Timestamp:  clock.Now().UTC(),
		Provenance: prov,
		Analysis:   result,
	}
}

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{"Condition", "Probability", "Risk Level", "Recommendations"}

// WriteCSV writes one row per condition in canonical order.
func WriteCSV(w io.Writer, s Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range AllConditions {
		cr, ok := s.Analysis[c]
		if !ok {
			continue
		}
		row := []string{
			c.String(),
			strconv.FormatFloat(cr.Probability, 'f', 1, 64),
			string(cr.Risk),
			strings.Join(cr.Recommendations, "; "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", c, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full snapshot, pretty-printed with two-space indent.
func WriteJSON(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Export writes the snapshot in the requested format.
func Export(w io.Writer, s Snapshot, format string) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, s)
	case FormatJSON, "":
		return WriteJSON(w, s)
	default:
		return fmt.Errorf("%w: unsupported export format %q", ErrInvalidInput, format)
	}
}

// ExportFilename returns e.g. "weather-analysis-2024-07-01.csv".
func ExportFilename(format string, at time.Time) string {
	return fmt.Sprintf("weather-analysis-%s.%s", at.UTC().Format(dateLayout), strings.ToLower(format))
}
