package reportparquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// EventsFile is the columnar copy of the normalized event table.
const EventsFile = "processed_logs.parquet"

// EventRow is the on-disk schema of one event. Column names match the CSV
// event table.
type EventRow struct {
	Timestamp     time.Time `parquet:"timestamp"`
	Status        string    `parquet:"status,dict"`
	Username      string    `parquet:"username,dict"`
	SourceIP      string    `parquet:"source_ip,dict"`
	Port          int32     `parquet:"port"`
	PID           int32     `parquet:"pid"`
	IsFailedLogin bool      `parquet:"is_failed_login"`
	HourOfDay     int32     `parquet:"hour_of_day"`
	DayOfWeek     int32     `parquet:"day_of_week"`
	IsInternalIP  bool      `parquet:"is_internal_ip"`
	Date          string    `parquet:"date,dict"`
	WeekdayName   string    `parquet:"weekday_name,dict"`
}

// Writer writes the event table as a Parquet file. Summary and anomaly
// outputs are left to the other sinks.
type Writer struct {
	dir  string
	path string
}

// NewWriter creates a Parquet writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	logger.Infof("Parquet writer initialized: %s", dir)
	return &Writer{dir: dir}, nil
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "parquet"
}

// Path returns the written file, or "" before WriteEvents succeeded.
func (w *Writer) Path() string {
	return w.path
}

// WriteEvents writes every event as one row.
func (w *Writer) WriteEvents(_ context.Context, events models.EventSet) error {
	if events.Empty() {
		return nil
	}
	rows := make([]EventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, toRow(ev))
	}

	path := filepath.Join(w.dir, EventsFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", EventsFile, err)
	}
	pw := parquet.NewGenericWriter[EventRow](f)
	if _, err := pw.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", EventsFile, err)
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize %s: %w", EventsFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", EventsFile, err)
	}

	w.path = path
	logger.Infof("Loaded %d records to %s", len(rows), path)
	return nil
}

// WriteSummary is a no-op.
func (w *Writer) WriteSummary(context.Context, models.DatasetSummary) error {
	return nil
}

// WriteReport is a no-op.
func (w *Writer) WriteReport(context.Context, *models.AnomalyReport) error {
	return nil
}

// Close is a no-op; the file is closed once written.
func (w *Writer) Close() error {
	return nil
}

func toRow(ev models.Event) EventRow {
	return EventRow{
		Timestamp:     ev.Timestamp.UTC(),
		Status:        string(ev.Status),
		Username:      ev.Username,
		SourceIP:      ev.SourceIP,
		Port:          int32(ev.Port),
		PID:           int32(ev.PID),
		IsFailedLogin: ev.IsFailedLogin,
		HourOfDay:     int32(ev.Hour),
		DayOfWeek:     int32((int(ev.Weekday) + 6) % 7),
		IsInternalIP:  ev.IsInternalIP,
		Date:          ev.Date,
		WeekdayName:   ev.WeekdayName(),
	}
}
