package models

import "time"

// Offender summarizes every anomaly raised against one source IP. The window
// is nil when none of its anomalies carry a timestamp.
type Offender struct {
	SourceIP    string         `json:"source_ip"`
	Score       int            `json:"score"`
	Severity    Severity       `json:"severity"`
	WindowStart *time.Time     `json:"window_start,omitempty"`
	WindowEnd   *time.Time     `json:"window_end,omitempty"`
	Counts      OffenderCounts `json:"counts"`
}

// OffenderCounts breaks an offender score down by anomaly variant.
type OffenderCounts struct {
	BruteForce         int `json:"brute_force"`
	VulnerableAccounts int `json:"vulnerable_accounts"`
	Geographic         int `json:"geographic"`
	Breaches           int `json:"breaches"`
}
