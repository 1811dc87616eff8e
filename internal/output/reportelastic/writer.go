package reportelastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// Config configures the Elasticsearch writer.
type Config struct {
	Addresses    []string
	Username     string
	Password     string
	AnomalyIndex string
	SummaryIndex string
}

// Writer indexes anomalies and dataset summaries into Elasticsearch.
type Writer struct {
	client       *elasticsearch.Client
	anomalyIndex string
	summaryIndex string
	pending      *models.DatasetSummary
}

// NewWriter creates an Elasticsearch writer.
func NewWriter(cfg Config) (*Writer, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses are empty")
	}
	if cfg.AnomalyIndex == "" {
		cfg.AnomalyIndex = "authwatch-anomalies"
	}
	if cfg.SummaryIndex == "" {
		cfg.SummaryIndex = "authwatch-summaries"
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	logger.Infof("Elasticsearch writer initialized: index=%s", cfg.AnomalyIndex)
	return &Writer{
		client:       client,
		anomalyIndex: cfg.AnomalyIndex,
		summaryIndex: cfg.SummaryIndex,
	}, nil
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "elasticsearch"
}

// WriteEvents is a no-op; raw events are not indexed.
func (w *Writer) WriteEvents(context.Context, models.EventSet) error {
	return nil
}

// WriteSummary holds the summary until the report supplies a run ID.
func (w *Writer) WriteSummary(_ context.Context, summary models.DatasetSummary) error {
	w.pending = &summary
	return nil
}

// WriteReport indexes each anomaly under a deterministic document ID, so
// re-sending the same report overwrites rather than duplicates.
func (w *Writer) WriteReport(ctx context.Context, report *models.AnomalyReport) error {
	if report == nil {
		return nil
	}
	if w.pending != nil {
		doc := map[string]interface{}{
			"run_id":       report.RunID,
			"generated_at": report.GeneratedAt,
			"dataset":      w.pending,
			"summary":      report.Summary,
		}
		if err := w.index(ctx, w.summaryIndex, report.RunID, doc); err != nil {
			return err
		}
		w.pending = nil
	}

	for i, a := range report.Anomalies() {
		id := report.RunID + "-" + strconv.Itoa(i)
		doc := anomalyDocument{
			RunID:       report.RunID,
			GeneratedAt: report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
			Anomaly:     a,
		}
		if err := w.index(ctx, w.anomalyIndex, id, doc); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the client holds no open streams.
func (w *Writer) Close() error {
	return nil
}

type anomalyDocument struct {
	RunID       string         `json:"run_id"`
	GeneratedAt string         `json:"generated_at"`
	Anomaly     models.Anomaly `json:"anomaly"`
}

func (w *Writer) index(ctx context.Context, index, id string, doc interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	res, err := w.client.Index(
		index,
		&buf,
		w.client.Index.WithContext(ctx),
		w.client.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("error indexing document: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.IsError() {
		return fmt.Errorf("elasticsearch index %s failed: %s", index, res.Status())
	}
	return nil
}
