package reporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"authwatch/pkg/models"
)

// Writer posts anomaly reports to a remote HTTP endpoint.
type Writer struct {
	url     string
	headers map[string]string
	client  *http.Client
	summary *models.DatasetSummary
}

// Config configures the HTTP writer.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Payload is the request body.
type Payload struct {
	Dataset *models.DatasetSummary `json:"dataset,omitempty"`
	Report  *models.AnomalyReport  `json:"report"`
}

// NewWriter creates an HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http report URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "http"
}

// WriteEvents is a no-op; events stay local.
func (w *Writer) WriteEvents(context.Context, models.EventSet) error {
	return nil
}

// WriteSummary keeps the dataset summary to send along with the report.
func (w *Writer) WriteSummary(_ context.Context, summary models.DatasetSummary) error {
	w.summary = &summary
	return nil
}

// WriteReport posts the report. Reports without anomalies are not sent.
func (w *Writer) WriteReport(ctx context.Context, report *models.AnomalyReport) error {
	if report == nil || report.Summary.TotalAnomalies == 0 {
		return nil
	}

	body, err := json.Marshal(Payload{Dataset: w.summary, Report: report})
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http request failed with status %s", resp.Status)
	}

	return nil
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
