package detect

import (
	"time"

	"authwatch/internal/netclass"
	"authwatch/pkg/models"
)

var base = time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)

func event(ip, user string, status models.Status, ts time.Time) models.Event {
	return models.Event{
		Timestamp:     ts,
		Status:        status,
		Username:      user,
		SourceIP:      ip,
		Port:          50000,
		PID:           1000,
		IsFailedLogin: status == models.StatusFailed,
		IsInternalIP:  netclass.IsInternal(ip),
		Hour:          ts.Hour(),
		Weekday:       ts.Weekday(),
		Date:          ts.Format("2006-01-02"),
	}
}

func failures(ip, user string, n int, start time.Time, step time.Duration) models.EventSet {
	out := make(models.EventSet, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, event(ip, user, models.StatusFailed, start.Add(time.Duration(i)*step)))
	}
	return out
}
