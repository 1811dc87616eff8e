package detect

import (
	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// DefaultVulnerableAccounts are account names commonly tried by credential
// stuffing tools.
var DefaultVulnerableAccounts = []string{
	"root", "admin", "test", "oracle", "postgres",
	"mysql", "ubuntu", "user", "guest", "ftp",
}

const DefaultVulnerableMinAttempts = 5

// VulnerableAccountDetector flags repeated failures against well-known accounts.
type VulnerableAccountDetector struct {
	accounts    map[string]struct{}
	MinAttempts int
}

// NewVulnerableAccountDetector creates a detector. An empty account list
// falls back to DefaultVulnerableAccounts.
func NewVulnerableAccountDetector(accounts []string, minAttempts int) *VulnerableAccountDetector {
	if len(accounts) == 0 {
		accounts = DefaultVulnerableAccounts
	}
	if minAttempts <= 0 {
		minAttempts = DefaultVulnerableMinAttempts
	}
	set := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		set[a] = struct{}{}
	}
	return &VulnerableAccountDetector{accounts: set, MinAttempts: minAttempts}
}

// Name returns the detector identifier.
func (d *VulnerableAccountDetector) Name() string {
	return "vulnerable_account"
}

// Detect groups failed logins on listed accounts by (source IP, username).
func (d *VulnerableAccountDetector) Detect(events models.EventSet) []models.VulnerableAccountAnomaly {
	out := make([]models.VulnerableAccountAnomaly, 0)
	if events.Empty() {
		return out
	}

	keep := func(ev models.Event) bool {
		if !ev.IsFailedLogin {
			return false
		}
		_, ok := d.accounts[ev.Username]
		return ok
	}
	key := func(ev models.Event) string {
		return ev.SourceIP + "\x00" + ev.Username
	}

	idx := buildIndex(events, keep, key)
	for _, g := range idx.groups {
		attempts := len(g.members)
		if attempts < d.MinAttempts {
			continue
		}
		ev := events[g.members[0]]
		sev := models.SeverityMedium
		if attempts > 20 {
			sev = models.SeverityHigh
		}
		out = append(out, models.VulnerableAccountAnomaly{
			AnomalyHeader: models.AnomalyHeader{
				SourceIP:    ev.SourceIP,
				AnomalyType: models.AnomalyVulnerableAccount,
				Severity:    sev,
			},
			Username: ev.Username,
			Attempts: attempts,
		})
	}

	if len(out) > 0 {
		logger.Warnf("VULNERABLE ACCOUNT TARGETING: %d patterns detected", len(out))
		for i, a := range out {
			if i == 3 {
				break
			}
			logger.Warnf("  - %s -> %s: %d attempts", a.SourceIP, a.Username, a.Attempts)
		}
	}
	return out
}
