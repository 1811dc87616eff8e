package detect

import (
	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

const (
	DefaultBruteForceThreshold = 10
	DefaultTimeWindowMinutes   = 60
)

// BruteForceDetector flags sources with many failed logins, or a short
// high-velocity burst of failures.
type BruteForceDetector struct {
	Threshold         int
	TimeWindowMinutes float64
}

// NewBruteForceDetector creates a detector, substituting defaults for
// non-positive settings.
func NewBruteForceDetector(threshold int, windowMinutes float64) *BruteForceDetector {
	if threshold <= 0 {
		threshold = DefaultBruteForceThreshold
	}
	if windowMinutes <= 0 {
		windowMinutes = DefaultTimeWindowMinutes
	}
	return &BruteForceDetector{Threshold: threshold, TimeWindowMinutes: windowMinutes}
}

// Name returns the detector identifier.
func (d *BruteForceDetector) Name() string {
	return "brute_force"
}

// Detect evaluates every source IP that has at least one failed login.
func (d *BruteForceDetector) Detect(events models.EventSet) []models.BruteForceAnomaly {
	out := make([]models.BruteForceAnomaly, 0)
	if events.Empty() {
		return out
	}

	idx := buildIndex(events, failedOnly, bySourceIP)
	for _, g := range idx.groups {
		a := d.reduce(events, g)
		if !d.flagged(a) {
			continue
		}
		a.Severity = bruteForceSeverity(a.FailedCount)
		out = append(out, a)
	}

	if len(out) > 0 {
		logger.Warnf("BRUTE FORCE DETECTED: %d suspicious IPs", len(out))
		for i, a := range out {
			if i == 5 {
				break
			}
			logger.Warnf("  - %s: %d failed attempts in %.1f min (%.1f/hr) [%s]",
				a.SourceIP, a.FailedCount, a.DurationMinutes, a.AttemptsPerHour, a.Severity)
		}
	}
	return out
}

func (d *BruteForceDetector) reduce(events models.EventSet, g *group) models.BruteForceAnomaly {
	first := events[g.members[0]].Timestamp
	last := first
	seen := make(map[string]struct{})
	users := make([]string, 0, 4)
	for _, i := range g.members {
		ev := events[i]
		if ev.Timestamp.Before(first) {
			first = ev.Timestamp
		}
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
		if _, ok := seen[ev.Username]; !ok {
			seen[ev.Username] = struct{}{}
			users = append(users, ev.Username)
		}
	}

	count := len(g.members)
	duration := last.Sub(first).Minutes()
	// A burst compressed into a few seconds extrapolates to a very large
	// hourly rate; that is how the rule is defined.
	rate := float64(count)
	if duration > 0 {
		rate = float64(count) / (duration / 60)
	}

	return models.BruteForceAnomaly{
		AnomalyHeader: models.AnomalyHeader{
			SourceIP:    g.key,
			AnomalyType: models.AnomalyBruteForce,
		},
		FailedCount:       count,
		FirstAttempt:      first,
		LastAttempt:       last,
		DurationMinutes:   duration,
		AttemptsPerHour:   rate,
		TargetedUsernames: users,
		NumUsersTargeted:  len(users),
	}
}

func (d *BruteForceDetector) flagged(a models.BruteForceAnomaly) bool {
	if a.FailedCount >= d.Threshold {
		return true
	}
	return a.AttemptsPerHour >= float64(d.Threshold)/2 && a.DurationMinutes <= d.TimeWindowMinutes
}

func bruteForceSeverity(failed int) models.Severity {
	switch {
	case failed > 50:
		return models.SeverityCritical
	case failed > 25:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}
