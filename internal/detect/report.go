package detect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"authwatch/internal/alerts"
	"authwatch/internal/logger"
	"authwatch/internal/rules"
	"authwatch/pkg/models"
)

// Detector evaluates one rule over a complete EventSet. Implementations must
// not modify the EventSet and must return an empty, non-nil slice when
// nothing is flagged.
type Detector[T any] interface {
	Name() string
	Detect(events models.EventSet) []T
}

// Config holds detection thresholds. Zero values select the defaults.
type Config struct {
	BruteForceThreshold   int
	TimeWindowMinutes     float64
	VulnerableAccounts    []string
	VulnerableMinAttempts int
	BreachMinFailures     int
	RegionPrefixes        []RegionPrefix
}

// Aggregator runs the four detectors over the same EventSet and merges
// their output into one report.
type Aggregator struct {
	bruteForce Detector[models.BruteForceAnomaly]
	vulnerable Detector[models.VulnerableAccountAnomaly]
	geographic Detector[models.GeographicAnomaly]
	breach     Detector[models.BreachAnomaly]
	engine     rules.Engine
	scorer     *alerts.Scorer
	now        func() time.Time
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithRuleEngine tags events with rule matches alongside detection.
func WithRuleEngine(engine rules.Engine) Option {
	return func(a *Aggregator) { a.engine = engine }
}

// WithScorer ranks offending source IPs after detection.
func WithScorer(scorer *alerts.Scorer) Option {
	return func(a *Aggregator) { a.scorer = scorer }
}

// WithDetectors replaces the built-in detectors. Nil arguments keep the
// configured detector.
func WithDetectors(
	bf Detector[models.BruteForceAnomaly],
	va Detector[models.VulnerableAccountAnomaly],
	geo Detector[models.GeographicAnomaly],
	br Detector[models.BreachAnomaly],
) Option {
	return func(a *Aggregator) {
		if bf != nil {
			a.bruteForce = bf
		}
		if va != nil {
			a.vulnerable = va
		}
		if geo != nil {
			a.geographic = geo
		}
		if br != nil {
			a.breach = br
		}
	}
}

// NewAggregator creates an aggregator from cfg.
func NewAggregator(cfg Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		bruteForce: NewBruteForceDetector(cfg.BruteForceThreshold, cfg.TimeWindowMinutes),
		vulnerable: NewVulnerableAccountDetector(cfg.VulnerableAccounts, cfg.VulnerableMinAttempts),
		geographic: NewGeographicAnomalyDetector(cfg.RegionPrefixes),
		breach:     NewBreachDetector(cfg.BreachMinFailures),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes every detector and returns the merged report. An empty
// EventSet yields a zeroed report without invoking any detector.
func (a *Aggregator) Run(ctx context.Context, events models.EventSet) (*models.AnomalyReport, error) {
	report := newReport(a.now())
	if events.Empty() {
		logger.Warnf("No data to analyze")
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.Go(func() error {
		report.BruteForce = a.bruteForce.Detect(events)
		return nil
	})
	g.Go(func() error {
		report.VulnerableAccounts = a.vulnerable.Detect(events)
		return nil
	})
	g.Go(func() error {
		report.Geographic = a.geographic.Detect(events)
		return nil
	})
	g.Go(func() error {
		report.Breaches = a.breach.Detect(events)
		return nil
	})
	if a.engine != nil {
		g.Go(func() error {
			report.RuleMatches = rules.MatchAll(a.engine, events)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Summary = Summarize(report)
	if a.scorer != nil {
		report.Offenders = a.scorer.Score(report)
	}

	s := report.Summary
	logger.Infof("Detection summary: total=%d critical=%d brute_force=%d vulnerable_accounts=%d geographic=%d breaches=%d",
		s.TotalAnomalies, s.CriticalThreats, s.BruteForceCount, s.VulnerableAccountCount, s.GeographicCount, s.BreachCount)
	return report, nil
}

// Summarize computes the summary counts of report.
func Summarize(report *models.AnomalyReport) models.ReportSummary {
	s := models.ReportSummary{
		BruteForceCount:        len(report.BruteForce),
		VulnerableAccountCount: len(report.VulnerableAccounts),
		GeographicCount:        len(report.Geographic),
		BreachCount:            len(report.Breaches),
	}
	s.TotalAnomalies = s.BruteForceCount + s.VulnerableAccountCount + s.GeographicCount + s.BreachCount
	s.CriticalThreats = s.BreachCount
	for _, a := range report.BruteForce {
		if a.Severity == models.SeverityCritical {
			s.CriticalThreats++
		}
	}
	return s
}

func newReport(now time.Time) *models.AnomalyReport {
	return &models.AnomalyReport{
		RunID:              uuid.NewString(),
		GeneratedAt:        now.UTC(),
		BruteForce:         []models.BruteForceAnomaly{},
		VulnerableAccounts: []models.VulnerableAccountAnomaly{},
		Geographic:         []models.GeographicAnomaly{},
		Breaches:           []models.BreachAnomaly{},
	}
}
