package domain

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Intent is what a free-text assistant message asks for.
type Intent struct {
	Place           string
	Condition       *Condition
	AskAlternatives bool
	AskAlerts       bool
}

var (
	placeIntent = regexp.MustCompile(`(?i)(?:analyze|weather\s+in|forecast\s+for|analyser?|analyse)\s+(.+)`)

	conditionIntents = []struct {
		cond    Condition
		pattern *regexp.Regexp
	}{
		{Temperature, regexp.MustCompile(`(?i)(temp|temperature|hot|cold|heat|freeze|freezing)`)},
		{Precipitation, regexp.MustCompile(`(?i)(rain|precip|precipitation|downpour|storm)`)},
		{Wind, regexp.MustCompile(`(?i)(wind|windy|gale|gust)`)},
		{Humidity, regexp.MustCompile(`(?i)(humidity|humid|moist)`)},
		{AirQuality, regexp.MustCompile(`(?i)(air\s*quality|aqi|pm2?\.5|smog)`)},
	}

	alternativesIntent = regexp.MustCompile(`(?i)(alternative|safer|better|nearby)`)
	alertsIntent       = regexp.MustCompile(`(?i)(alert|alerts|warnings?)`)
)

// ParseIntent classifies an assistant message. The first matching condition
// wins, in canonical condition order.
func ParseIntent(text string) Intent {
	var in Intent
	lower := strings.ToLower(text)
	if m := placeIntent.FindStringSubmatch(lower); m != nil {
		in.Place = strings.TrimSpace(m[1])
	}
	for _, ci := range conditionIntents {
		if ci.pattern.MatchString(text) {
			c := ci.cond
			in.Condition = &c
			break
		}
	}
	in.AskAlternatives = alternativesIntent.MatchString(lower)
	in.AskAlerts = alertsIntent.MatchString(lower)
	return in
}

// byProbability returns the result's conditions, highest probability first.
// Ties keep canonical order.
func byProbability(r AnalysisResult) []Condition {
	conds := make([]Condition, 0, len(r))
	for _, c := range AllConditions {
		if r.Has(c) {
			conds = append(conds, c)
		}
	}
	sort.SliceStable(conds, func(i, j int) bool {
		return r[conds[i]].Probability > r[conds[j]].Probability
	})
	return conds
}

// Summarize lists the three most likely conditions and up to five distinct
// recommendations drawn from the first two of each condition.
func Summarize(r AnalysisResult) string {
	conds := byProbability(r)
	if len(conds) == 0 {
		return "No analysis data available yet."
	}
	var b strings.Builder
	for i, c := range conds {
		if i == 3 {
			break
		}
		cr := r[c]
		fmt.Fprintf(&b, "- %s: %.1f%% (%s risk)\n", c.DisplayName(), cr.Probability, cr.Risk)
	}

	var recs []string
	seen := make(map[string]bool)
	for _, c := range conds {
		list := r[c].Recommendations
		if len(list) > 2 {
			list = list[:2]
		}
		for _, rec := range list {
			if !seen[rec] {
				seen[rec] = true
				recs = append(recs, rec)
			}
		}
	}
	if len(recs) > 5 {
		recs = recs[:5]
	}
	b.WriteString("Recommendations: ")
	if len(recs) == 0 {
		b.WriteString("N/A")
	} else {
		b.WriteString(strings.Join(recs, "; "))
	}
	return b.String()
}

// Alert flags a condition at medium or high risk.
type Alert struct {
	Condition   Condition `json:"condition"`
	Title       string    `json:"title"`
	Probability int       `json:"probability"`
	Severity    RiskLevel `json:"severity"`
}

// BuildAlerts returns every medium or high risk condition, most likely first.
func BuildAlerts(r AnalysisResult) []Alert {
	var alerts []Alert
	for _, c := range byProbability(r) {
		cr := r[c]
		if cr.Risk == RiskLow {
			continue
		}
		alerts = append(alerts, Alert{
			Condition:   c,
			Title:       c.DisplayName(),
			Probability: int(math.Round(cr.Probability)),
			Severity:    cr.Risk,
		})
	}
	return alerts
}

// DescribeCondition answers a question about one condition.
func DescribeCondition(r AnalysisResult, c Condition) string {
	cr, ok := r[c]
	if !ok {
		return fmt.Sprintf("I don't have %s enabled or available in the current analysis.", c.DisplayName())
	}
	line := fmt.Sprintf("%s probability is %.1f%% (%s risk).", c.DisplayName(), cr.Probability, cr.Risk)
	recs := cr.Recommendations
	if len(recs) > 3 {
		recs = recs[:3]
	}
	if len(recs) > 0 {
		line += " Recommendations: " + strings.Join(recs, "; ") + "."
	}
	return line
}

// DescribeAlerts renders up to five alerts, one per line.
func DescribeAlerts(alerts []Alert) string {
	if len(alerts) == 0 {
		return "No Active Alerts."
	}
	lines := make([]string, 0, 5)
	for i, a := range alerts {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %d%% (%s)", a.Title, a.Probability, a.Severity))
	}
	return "Active Alerts:\n" + strings.Join(lines, "\n")
}
