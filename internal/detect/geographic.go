package detect

import (
	"strings"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// RegionPrefix maps a dotted-literal prefix to an illustrative region label.
type RegionPrefix struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Label  string `yaml:"label" json:"label"`
}

// DefaultRegionPrefixes is evaluated in order; the first matching prefix wins.
// This is a string heuristic, not geolocation: a real deployment would use a
// GeoIP database.
var DefaultRegionPrefixes = []RegionPrefix{
	{Prefix: "45.", Label: "Eastern Europe"},
	{Prefix: "103.", Label: "Southeast Asia"},
	{Prefix: "185.", Label: "Europe/Tor"},
	{Prefix: "91.", Label: "Central Asia"},
	{Prefix: "196.", Label: "Africa"},
	{Prefix: "41.", Label: "Africa"},
}

// GeographicAnomalyDetector flags external sources matched by the prefix table.
type GeographicAnomalyDetector struct {
	prefixes []RegionPrefix
}

// NewGeographicAnomalyDetector creates a detector. An empty table falls back
// to DefaultRegionPrefixes.
func NewGeographicAnomalyDetector(prefixes []RegionPrefix) *GeographicAnomalyDetector {
	if len(prefixes) == 0 {
		prefixes = DefaultRegionPrefixes
	}
	table := make([]RegionPrefix, len(prefixes))
	copy(table, prefixes)
	return &GeographicAnomalyDetector{prefixes: table}
}

// Name returns the detector identifier.
func (d *GeographicAnomalyDetector) Name() string {
	return "geographic"
}

// Match returns the label of the first prefix that ip starts with.
func (d *GeographicAnomalyDetector) Match(ip string) (string, bool) {
	for _, p := range d.prefixes {
		if strings.HasPrefix(ip, p.Prefix) {
			return p.Label, true
		}
	}
	return "", false
}

// Detect evaluates each distinct external IP once, counting all its events.
func (d *GeographicAnomalyDetector) Detect(events models.EventSet) []models.GeographicAnomaly {
	out := make([]models.GeographicAnomaly, 0)
	if events.Empty() {
		return out
	}

	idx := buildIndex(events, nil, bySourceIP)
	for _, g := range idx.groups {
		if events[g.members[0]].IsInternalIP {
			continue
		}
		label, ok := d.Match(g.key)
		if !ok {
			continue
		}
		failed := 0
		for _, i := range g.members {
			if events[i].IsFailedLogin {
				failed++
			}
		}
		total := len(g.members)
		sev := models.SeverityMedium
		if failed > 10 {
			sev = models.SeverityHigh
		}
		out = append(out, models.GeographicAnomaly{
			AnomalyHeader: models.AnomalyHeader{
				SourceIP:    g.key,
				AnomalyType: models.AnomalyGeographic,
				Severity:    sev,
			},
			Location:        label,
			TotalAttempts:   total,
			FailedAttempts:  failed,
			SuccessAttempts: total - failed,
		})
	}

	if len(out) > 0 {
		logger.Warnf("GEOGRAPHIC ANOMALIES: %d unusual locations", len(out))
		for i, a := range out {
			if i == 3 {
				break
			}
			logger.Warnf("  - %s (%s): %d failed, %d successful", a.SourceIP, a.Location, a.FailedAttempts, a.SuccessAttempts)
		}
	}
	return out
}
