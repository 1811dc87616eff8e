package models

import "time"

// RuleTag represents a Sigma rule match annotation.
type RuleTag struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
}

// RuleMatch ties rule tags to the event that triggered them.
type RuleMatch struct {
	Timestamp  time.Time `json:"ts"`
	SourceIP   string    `json:"source_ip"`
	Username   string    `json:"username"`
	Status     Status    `json:"status"`
	EventIndex int       `json:"event_index"`
	Tags       []RuleTag `json:"tags"`
}
