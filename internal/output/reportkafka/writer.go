package reportkafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer publishes anomalies to a Kafka topic, keyed by source IP so every
// anomaly for one address lands on the same partition.
type Writer struct {
	writer messageWriter
	topic  string
}

// NewWriter creates a Kafka writer.
func NewWriter(cfg Config) (*Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are empty")
	}
	if cfg.Topic == "" {
		cfg.Topic = "authwatch.anomalies"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	logger.Infof("Kafka writer initialized: topic=%s brokers=%v", cfg.Topic, cfg.Brokers)
	return &Writer{writer: w, topic: cfg.Topic}, nil
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "kafka"
}

// WriteEvents is a no-op; only detection results are published.
func (w *Writer) WriteEvents(context.Context, models.EventSet) error {
	return nil
}

// WriteSummary is a no-op.
func (w *Writer) WriteSummary(context.Context, models.DatasetSummary) error {
	return nil
}

// WriteReport publishes one message per anomaly.
func (w *Writer) WriteReport(ctx context.Context, report *models.AnomalyReport) error {
	if report == nil {
		return nil
	}
	anomalies := report.Anomalies()
	if len(anomalies) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(anomalies))
	for _, a := range anomalies {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal anomaly: %w", err)
		}
		h := a.Header()
		msgs = append(msgs, kafka.Message{
			Key:   []byte(h.SourceIP),
			Value: value,
			Time:  report.GeneratedAt,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(report.RunID)},
				{Key: "anomaly_type", Value: []byte(h.AnomalyType)},
				{Key: "severity", Value: []byte(h.Severity)},
			},
		})
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write kafka messages: %w", err)
	}
	logger.Debugf("Published %d anomalies to %s", len(msgs), w.topic)
	return nil
}

// Close flushes pending messages and closes the writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}
