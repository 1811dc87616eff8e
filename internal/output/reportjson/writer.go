package reportjson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// Record kinds written to the stream.
const (
	KindEvent     = "event"
	KindSummary   = "summary"
	KindAnomaly   = "anomaly"
	KindRuleMatch = "rule_match"
	KindOffender  = "offender"
	KindReport    = "report_summary"
)

// Record is one JSON line.
type Record struct {
	Kind  string      `json:"kind"`
	RunID string      `json:"run_id,omitempty"`
	Data  interface{} `json:"data"`
}

// Writer outputs pipeline results to a JSON lines file.
type Writer struct {
	file          *os.File
	encoder       *json.Encoder
	includeEvents bool
	mu            sync.Mutex
}

// NewWriter creates a JSONL writer. Events are only written when
// includeEvents is set; the CSV event table is usually enough.
func NewWriter(path string, includeEvents bool) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	logger.Infof("Report JSON writer initialized: %s", path)
	return &Writer{
		file:          f,
		encoder:       json.NewEncoder(f),
		includeEvents: includeEvents,
	}, nil
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "jsonl"
}

// WriteEvents writes one line per event when enabled.
func (w *Writer) WriteEvents(_ context.Context, events models.EventSet) error {
	if !w.includeEvents {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ev := range events {
		if err := w.encoder.Encode(Record{Kind: KindEvent, Data: ev}); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

// WriteSummary writes the dataset summary line.
func (w *Writer) WriteSummary(_ context.Context, summary models.DatasetSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(Record{Kind: KindSummary, Data: summary}); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// WriteReport writes every anomaly, rule match and offender, then the
// report summary.
func (w *Writer) WriteReport(_ context.Context, report *models.AnomalyReport) error {
	if report == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, a := range report.Anomalies() {
		if err := w.encoder.Encode(Record{Kind: KindAnomaly, RunID: report.RunID, Data: a}); err != nil {
			return fmt.Errorf("failed to encode anomaly: %w", err)
		}
	}
	for _, m := range report.RuleMatches {
		if err := w.encoder.Encode(Record{Kind: KindRuleMatch, RunID: report.RunID, Data: m}); err != nil {
			return fmt.Errorf("failed to encode rule match: %w", err)
		}
	}
	for _, o := range report.Offenders {
		if err := w.encoder.Encode(Record{Kind: KindOffender, RunID: report.RunID, Data: o}); err != nil {
			return fmt.Errorf("failed to encode offender: %w", err)
		}
	}
	if err := w.encoder.Encode(Record{Kind: KindReport, RunID: report.RunID, Data: report.Summary}); err != nil {
		return fmt.Errorf("failed to encode report summary: %w", err)
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
