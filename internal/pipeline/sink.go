package pipeline

import (
	"context"

	"authwatch/pkg/models"
)

// LineSource supplies the raw lines of one batch.
type LineSource interface {
	Name() string
	ReadLines(ctx context.Context) ([]string, error)
	Close() error
}

// Sink persists pipeline outputs. Sinks that have no use for one of the
// outputs return nil from that method.
type Sink interface {
	Name() string
	WriteEvents(ctx context.Context, events models.EventSet) error
	WriteSummary(ctx context.Context, summary models.DatasetSummary) error
	WriteReport(ctx context.Context, report *models.AnomalyReport) error
	Close() error
}
