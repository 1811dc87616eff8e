package models

import "time"

// ReportSummary counts the anomalies in one report.
type ReportSummary struct {
	TotalAnomalies         int `json:"total_anomalies"`
	CriticalThreats        int `json:"critical_threats"`
	BruteForceCount        int `json:"brute_force_count"`
	VulnerableAccountCount int `json:"vulnerable_account_count"`
	GeographicCount        int `json:"geographic_count"`
	BreachCount            int `json:"breach_count"`
}

// AnomalyReport is the merged output of one detection run.
//
// RuleMatches and Offenders are informational and do not count toward Summary.
type AnomalyReport struct {
	RunID              string                     `json:"run_id"`
	GeneratedAt        time.Time                  `json:"generated_at"`
	BruteForce         []BruteForceAnomaly        `json:"brute_force_attacks"`
	VulnerableAccounts []VulnerableAccountAnomaly `json:"vulnerable_account_targeting"`
	Geographic         []GeographicAnomaly        `json:"geographic_anomalies"`
	Breaches           []BreachAnomaly            `json:"possible_breaches"`
	RuleMatches        []RuleMatch                `json:"rule_matches,omitempty"`
	Offenders          []Offender                 `json:"offenders,omitempty"`
	Summary            ReportSummary              `json:"summary"`
}

// Anomalies flattens the four variant collections in report order.
func (r *AnomalyReport) Anomalies() []Anomaly {
	if r == nil {
		return nil
	}
	out := make([]Anomaly, 0, r.Summary.TotalAnomalies)
	for _, a := range r.BruteForce {
		out = append(out, a)
	}
	for _, a := range r.VulnerableAccounts {
		out = append(out, a)
	}
	for _, a := range r.Geographic {
		out = append(out, a)
	}
	for _, a := range r.Breaches {
		out = append(out, a)
	}
	return out
}

// DatasetSummary is the scalar summary record for an EventSet.
type DatasetSummary struct {
	TotalLogs          int        `json:"total_logs"`
	UniqueIPs          int        `json:"unique_ips"`
	UniqueUsers        int        `json:"unique_users"`
	FailedLogins       int        `json:"failed_logins"`
	SuccessRate        float64    `json:"success_rate"`
	InternalTrafficPct float64    `json:"internal_traffic_pct"`
	DateRangeStart     *time.Time `json:"date_range_start"`
	DateRangeEnd       *time.Time `json:"date_range_end"`
	TimeSpanHours      float64    `json:"time_span_hours"`
	Error              string     `json:"error,omitempty"`
}
