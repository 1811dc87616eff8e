package alerts

import (
	"sort"
	"strings"
	"time"

	"authwatch/pkg/models"
)

// Config controls offender scoring behavior.
type Config struct {
	// Threshold is the minimum score an IP needs to be reported.
	Threshold int
	// MaxOffenders caps the ranked list.
	MaxOffenders int
}

// Scorer ranks source IPs by the anomalies raised against them.
type Scorer struct {
	cfg Config
}

type offenderState struct {
	offender models.Offender
	rank     int
}

// NewScorer creates a new scorer.
func NewScorer(cfg Config) *Scorer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.MaxOffenders <= 0 {
		cfg.MaxOffenders = 50
	}
	return &Scorer{cfg: cfg}
}

// Score folds every anomaly in report into one entry per source IP and
// returns those at or above the threshold, highest score first.
func (s *Scorer) Score(report *models.AnomalyReport) []models.Offender {
	if report == nil {
		return nil
	}

	byIP := make(map[string]*offenderState)
	var order []string
	get := func(ip string) *offenderState {
		st := byIP[ip]
		if st == nil {
			st = &offenderState{offender: models.Offender{SourceIP: ip}}
			byIP[ip] = st
			order = append(order, ip)
		}
		return st
	}
	add := func(st *offenderState, sev models.Severity, start, end time.Time) {
		st.offender.Score += severityWeight(string(sev))
		if r := severityRank(sev); r > st.rank {
			st.rank = r
			st.offender.Severity = sev
		}
		widen(&st.offender, start, end)
	}

	for _, a := range report.BruteForce {
		st := get(a.SourceIP)
		st.offender.Counts.BruteForce++
		add(st, a.Severity, a.FirstAttempt, a.LastAttempt)
		// Each distinct targeted account adds to the spread of the attack.
		st.offender.Score += a.NumUsersTargeted
	}
	for _, a := range report.VulnerableAccounts {
		st := get(a.SourceIP)
		st.offender.Counts.VulnerableAccounts++
		add(st, a.Severity, time.Time{}, time.Time{})
	}
	for _, a := range report.Geographic {
		st := get(a.SourceIP)
		st.offender.Counts.Geographic++
		add(st, a.Severity, time.Time{}, time.Time{})
	}
	for _, a := range report.Breaches {
		st := get(a.SourceIP)
		st.offender.Counts.Breaches++
		add(st, a.Severity, a.BreachTimestamp, a.BreachTimestamp)
	}

	out := make([]models.Offender, 0, len(order))
	for _, ip := range order {
		o := byIP[ip].offender
		if o.Score < s.cfg.Threshold {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SourceIP < out[j].SourceIP
	})
	if len(out) > s.cfg.MaxOffenders {
		out = out[:s.cfg.MaxOffenders]
	}
	return out
}

func widen(o *models.Offender, start, end time.Time) {
	if !start.IsZero() && (o.WindowStart == nil || start.Before(*o.WindowStart)) {
		o.WindowStart = &start
	}
	if !end.IsZero() && (o.WindowEnd == nil || end.After(*o.WindowEnd)) {
		o.WindowEnd = &end
	}
}

func severityRank(sev models.Severity) int {
	switch sev {
	case models.SeverityCritical:
		return 3
	case models.SeverityHigh:
		return 2
	case models.SeverityMedium:
		return 1
	}
	return 0
}

func severityWeight(level string) int {
	switch strings.ToLower(level) {
	case "critical":
		return 7
	case "high":
		return 5
	case "medium":
		return 3
	case "low":
		return 1
	default:
		return 1
	}
}
