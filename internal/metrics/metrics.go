package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"authwatch/pkg/models"
)

// Metrics holds the Prometheus metrics of one analysis run.
type Metrics struct {
	registry *prometheus.Registry

	LinesTotal      *prometheus.CounterVec
	EventsTotal     *prometheus.CounterVec
	AnomaliesTotal  *prometheus.CounterVec
	RuleMatches     prometheus.Counter
	StageDuration   *prometheus.GaugeVec
	ProcessingRate  prometheus.Gauge
	ParseSuccessPct prometheus.Gauge
	SinkErrors      *prometheus.CounterVec
}

// NewMetrics creates the metrics on a private registry, so repeated runs in
// one process do not collide on the default registry.
func NewMetrics() *Metrics {
	linesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_lines_total",
			Help: "Raw log lines seen by the transformer, by parse result",
		},
		[]string{"result"},
	)

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_events_total",
			Help: "Normalized authentication events by status",
		},
		[]string{"status"},
	)

	anomaliesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_anomalies_total",
			Help: "Anomalies raised by type and severity",
		},
		[]string{"type", "severity"},
	)

	ruleMatches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "authwatch_rule_matches_total",
			Help: "Events tagged by at least one Sigma rule",
		},
	)

	stageDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authwatch_stage_duration_seconds",
			Help: "Wall time of the last run of each pipeline stage",
		},
		[]string{"stage"},
	)

	processingRate := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "authwatch_processing_rate_events_per_second",
			Help: "Events processed per second over the whole run",
		},
	)

	parseSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "authwatch_parse_success_percent",
			Help: "Share of raw lines parsed into events",
		},
	)

	sinkErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_sink_errors_total",
			Help: "Failed sink writes by sink",
		},
		[]string{"sink"},
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(linesTotal)
	reg.MustRegister(eventsTotal)
	reg.MustRegister(anomaliesTotal)
	reg.MustRegister(ruleMatches)
	reg.MustRegister(stageDuration)
	reg.MustRegister(processingRate)
	reg.MustRegister(parseSuccess)
	reg.MustRegister(sinkErrors)

	return &Metrics{
		registry:        reg,
		LinesTotal:      linesTotal,
		EventsTotal:     eventsTotal,
		AnomaliesTotal:  anomaliesTotal,
		RuleMatches:     ruleMatches,
		StageDuration:   stageDuration,
		ProcessingRate:  processingRate,
		ParseSuccessPct: parseSuccess,
		SinkErrors:      sinkErrors,
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// ObserveParse records transformer counters.
func (m *Metrics) ObserveParse(parsed, failed int, successPct float64) {
	m.LinesTotal.WithLabelValues("parsed").Add(float64(parsed))
	m.LinesTotal.WithLabelValues("failed").Add(float64(failed))
	m.ParseSuccessPct.Set(successPct)
}

// ObserveEvents counts events by status.
func (m *Metrics) ObserveEvents(events models.EventSet) {
	for _, ev := range events {
		m.EventsTotal.WithLabelValues(string(ev.Status)).Inc()
	}
}

// ObserveReport counts the anomalies and rule matches of report.
func (m *Metrics) ObserveReport(report *models.AnomalyReport) {
	if report == nil {
		return
	}
	for _, a := range report.Anomalies() {
		h := a.Header()
		m.AnomaliesTotal.WithLabelValues(string(h.AnomalyType), string(h.Severity)).Inc()
	}
	m.RuleMatches.Add(float64(len(report.RuleMatches)))
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Push sends the metrics to a Pushgateway under job.
func (m *Metrics) Push(url, job string) error {
	if job == "" {
		job = "authwatch"
	}
	if err := push.New(url, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
