package summary

import (
	"math"

	"authwatch/pkg/models"
)

// NoDataMessage is recorded on the summary of an empty EventSet.
const NoDataMessage = "No data to analyze"

// Summarize computes the dataset summary record. Percentages and the time
// span are rounded to two decimals.
func Summarize(events models.EventSet) models.DatasetSummary {
	if events.Empty() {
		return models.DatasetSummary{Error: NoDataMessage}
	}

	ips := make(map[string]struct{})
	users := make(map[string]struct{})
	failed, internal := 0, 0
	start, end := events[0].Timestamp, events[0].Timestamp

	for _, ev := range events {
		ips[ev.SourceIP] = struct{}{}
		users[ev.Username] = struct{}{}
		if ev.IsFailedLogin {
			failed++
		}
		if ev.IsInternalIP {
			internal++
		}
		if ev.Timestamp.Before(start) {
			start = ev.Timestamp
		}
		if ev.Timestamp.After(end) {
			end = ev.Timestamp
		}
	}

	total := float64(len(events))
	return models.DatasetSummary{
		TotalLogs:          len(events),
		UniqueIPs:          len(ips),
		UniqueUsers:        len(users),
		FailedLogins:       failed,
		SuccessRate:        round2((1 - float64(failed)/total) * 100),
		InternalTrafficPct: round2(float64(internal) / total * 100),
		DateRangeStart:     &start,
		DateRangeEnd:       &end,
		TimeSpanHours:      round2(end.Sub(start).Hours()),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
