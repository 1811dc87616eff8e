package detect

import (
	"sort"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

const DefaultBreachMinFailures = 5

// BreachDetector flags a first successful login preceded by a run of failures.
type BreachDetector struct {
	MinFailures int
}

// NewBreachDetector creates a detector.
func NewBreachDetector(minFailures int) *BreachDetector {
	if minFailures <= 0 {
		minFailures = DefaultBreachMinFailures
	}
	return &BreachDetector{MinFailures: minFailures}
}

// Name returns the detector identifier.
func (d *BreachDetector) Name() string {
	return "breach"
}

// Detect walks each source IP's events in time order up to its first
// Accepted event. Sources that never succeed produce nothing.
func (d *BreachDetector) Detect(events models.EventSet) []models.BreachAnomaly {
	out := make([]models.BreachAnomaly, 0)
	if events.Empty() {
		return out
	}

	idx := buildIndex(events, nil, bySourceIP)
	for _, g := range idx.groups {
		members := append([]int(nil), g.members...)
		// members are in input order, so a stable sort keeps input order on
		// equal timestamps.
		sort.SliceStable(members, func(i, j int) bool {
			return events[members[i]].Timestamp.Before(events[members[j]].Timestamp)
		})

		failures := 0
		success := -1
		for _, i := range members {
			if events[i].Status == models.StatusAccepted {
				success = i
				break
			}
			failures++
		}
		if success < 0 || failures < d.MinFailures {
			continue
		}

		ev := events[success]
		sev := models.SeverityHigh
		if failures > 20 {
			sev = models.SeverityCritical
		}
		out = append(out, models.BreachAnomaly{
			AnomalyHeader: models.AnomalyHeader{
				SourceIP:    g.key,
				AnomalyType: models.AnomalyBreach,
				Severity:    sev,
			},
			Username:                    ev.Username,
			FailedAttemptsBeforeSuccess: failures,
			BreachTimestamp:             ev.Timestamp,
		})
	}

	if len(out) > 0 {
		logger.Warnf("POSSIBLE BREACHES: %d successful logins after many failures", len(out))
		for _, a := range out {
			logger.Warnf("  - %s -> %s: SUCCESS after %d failures [%s]", a.SourceIP, a.Username, a.FailedAttemptsBeforeSuccess, a.Severity)
		}
	}
	return out
}
