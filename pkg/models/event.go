package models

import "time"

// Status is the outcome reported by sshd for one password attempt.
type Status string

const (
	StatusAccepted Status = "Accepted"
	StatusFailed   Status = "Failed"
)

// Event is one normalized authentication attempt.
//
// Events are built by the sshd normalizer and passed by value; nothing
// modifies an Event after it has been appended to an EventSet.
type Event struct {
	Timestamp     time.Time    `json:"timestamp"`
	Status        Status       `json:"status"`
	Username      string       `json:"username"`
	SourceIP      string       `json:"source_ip"`
	Port          int          `json:"port"`
	PID           int          `json:"pid"`
	IsFailedLogin bool         `json:"is_failed_login"`
	IsInternalIP  bool         `json:"is_internal_ip"`
	Hour          int          `json:"hour_of_day"`
	Weekday       time.Weekday `json:"day_of_week"`
	Date          string       `json:"date"`
}

// WeekdayName returns the English day name, e.g. "Monday".
func (e Event) WeekdayName() string {
	return e.Weekday.String()
}

// EventSet is the complete ordered collection of events for one analysis run.
// Order is input order and duplicates are kept.
type EventSet []Event

// Len returns the number of events.
func (s EventSet) Len() int {
	return len(s)
}

// Empty reports whether the set holds no events.
func (s EventSet) Empty() bool {
	return len(s) == 0
}
