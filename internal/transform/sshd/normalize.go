package sshd

import (
	"authwatch/internal/netclass"
	"authwatch/pkg/models"
)

// Normalize builds an Event from a parsed record, filling the derived fields.
func Normalize(rec Record) models.Event {
	return models.Event{
		Timestamp:     rec.Timestamp,
		Status:        rec.Status,
		Username:      rec.Username,
		SourceIP:      rec.SourceIP,
		Port:          rec.Port,
		PID:           rec.PID,
		IsFailedLogin: rec.Status == models.StatusFailed,
		IsInternalIP:  netclass.IsInternal(rec.SourceIP),
		Hour:          rec.Timestamp.Hour(),
		Weekday:       rec.Timestamp.Weekday(),
		Date:          rec.Timestamp.Format("2006-01-02"),
	}
}
