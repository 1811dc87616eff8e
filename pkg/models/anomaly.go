package models

import "time"

// Severity ranks one anomaly instance.
type Severity string

const (
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AnomalyType names the rule that produced an anomaly.
type AnomalyType string

const (
	AnomalyBruteForce        AnomalyType = "BRUTE_FORCE"
	AnomalyVulnerableAccount AnomalyType = "VULNERABLE_ACCOUNT_TARGETING"
	AnomalyGeographic        AnomalyType = "GEOGRAPHIC_ANOMALY"
	AnomalyBreach            AnomalyType = "POSSIBLE_BREACH"
)

// AnomalyHeader holds the fields shared by every anomaly variant.
type AnomalyHeader struct {
	SourceIP    string      `json:"source_ip"`
	AnomalyType AnomalyType `json:"anomaly_type"`
	Severity    Severity    `json:"severity"`
}

// Header returns the shared fields.
func (h AnomalyHeader) Header() AnomalyHeader {
	return h
}

// Anomaly is implemented by the four anomaly variants.
type Anomaly interface {
	Header() AnomalyHeader
}

// BruteForceAnomaly flags a source with many failed logins.
type BruteForceAnomaly struct {
	AnomalyHeader
	FailedCount       int       `json:"failed_count"`
	FirstAttempt      time.Time `json:"first_attempt"`
	LastAttempt       time.Time `json:"last_attempt"`
	DurationMinutes   float64   `json:"duration_minutes"`
	AttemptsPerHour   float64   `json:"attempts_per_hour"`
	TargetedUsernames []string  `json:"targeted_users"`
	NumUsersTargeted  int       `json:"num_users_targeted"`
}

// VulnerableAccountAnomaly flags repeated failures against a well-known account.
type VulnerableAccountAnomaly struct {
	AnomalyHeader
	Username string `json:"username"`
	Attempts int    `json:"attempts"`
}

// GeographicAnomaly flags an external source matched by the region prefix table.
type GeographicAnomaly struct {
	AnomalyHeader
	Location        string `json:"location"`
	TotalAttempts   int    `json:"total_attempts"`
	FailedAttempts  int    `json:"failed_attempts"`
	SuccessAttempts int    `json:"success_attempts"`
}

// BreachAnomaly flags a successful login preceded by many failures.
type BreachAnomaly struct {
	AnomalyHeader
	Username                    string    `json:"username"`
	FailedAttemptsBeforeSuccess int       `json:"failed_attempts_before_success"`
	BreachTimestamp             time.Time `json:"breach_timestamp"`
}
