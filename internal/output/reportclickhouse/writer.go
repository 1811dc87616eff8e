package reportclickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// Config configures the ClickHouse writer.
type Config struct {
	Addr           []string
	Database       string
	Username       string
	Password       string
	EventsTable    string
	AnomaliesTable string
	SummaryTable   string
	DialTimeout    time.Duration
	CreateTables   bool
}

type rowBatch interface {
	Append(v ...any) error
	Send() error
}

type conn interface {
	PrepareBatch(ctx context.Context, query string) (rowBatch, error)
	Exec(ctx context.Context, query string) error
	Close() error
}

type nativeConn struct {
	conn driver.Conn
}

func (c nativeConn) PrepareBatch(ctx context.Context, query string) (rowBatch, error) {
	return c.conn.PrepareBatch(ctx, query)
}

func (c nativeConn) Exec(ctx context.Context, query string) error {
	return c.conn.Exec(ctx, query)
}

func (c nativeConn) Close() error {
	return c.conn.Close()
}

// Writer inserts events, summaries and anomalies into ClickHouse tables
// using native protocol batches.
type Writer struct {
	conn      conn
	database  string
	events    string
	anomalies string
	summary   string
	now       func() time.Time
}

// NewWriter opens a ClickHouse connection and verifies it with a ping.
func NewWriter(ctx context.Context, cfg Config) (*Writer, error) {
	if len(cfg.Addr) == 0 {
		return nil, fmt.Errorf("clickhouse address is empty")
	}
	applyDefaults(&cfg)

	opts := &ch.Options{
		Addr: cfg.Addr,
		Auth: ch.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
			Database: cfg.Database,
		},
		DialTimeout:      cfg.DialTimeout,
		ConnOpenStrategy: ch.ConnOpenInOrder,
	}
	c, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	w := newWriter(nativeConn{conn: c}, cfg)
	if cfg.CreateTables {
		if err := w.createTables(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	logger.Infof("ClickHouse writer initialized: %s db=%s", strings.Join(cfg.Addr, ","), cfg.Database)
	return w, nil
}

func newWriter(c conn, cfg Config) *Writer {
	applyDefaults(&cfg)
	return &Writer{
		conn:      c,
		database:  cfg.Database,
		events:    cfg.EventsTable,
		anomalies: cfg.AnomaliesTable,
		summary:   cfg.SummaryTable,
		now:       time.Now,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.EventsTable == "" {
		cfg.EventsTable = "auth_events"
	}
	if cfg.AnomaliesTable == "" {
		cfg.AnomaliesTable = "auth_anomalies"
	}
	if cfg.SummaryTable == "" {
		cfg.SummaryTable = "auth_dataset_summary"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "clickhouse"
}

// WriteEvents inserts the event table in one batch.
func (w *Writer) WriteEvents(ctx context.Context, events models.EventSet) error {
	if events.Empty() {
		return nil
	}
	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rows = append(rows, eventRow(ev))
	}
	return w.insert(ctx, w.events, rows)
}

// WriteSummary inserts the dataset summary row.
func (w *Writer) WriteSummary(ctx context.Context, s models.DatasetSummary) error {
	return w.insert(ctx, w.summary, [][]any{summaryRow(w.now().UTC(), s)})
}

// WriteReport inserts every anomaly as one row with its variant fields as JSON.
func (w *Writer) WriteReport(ctx context.Context, report *models.AnomalyReport) error {
	if report == nil {
		return nil
	}
	anomalies := report.Anomalies()
	if len(anomalies) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(anomalies))
	for _, a := range anomalies {
		row, err := anomalyRow(report.RunID, report.GeneratedAt, a)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return w.insert(ctx, w.anomalies, rows)
}

// Close closes the connection.
func (w *Writer) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func (w *Writer) insert(ctx context.Context, table string, rows [][]any) error {
	q := fmt.Sprintf("INSERT INTO %s.%s", quoteIdent(w.database), quoteIdent(table))
	batch, err := w.conn.PrepareBatch(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to prepare clickhouse batch for %s: %w", table, err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("failed to append row to %s: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send clickhouse batch for %s: %w", table, err)
	}
	logger.Debugf("Inserted %d rows into %s", len(rows), table)
	return nil
}

func (w *Writer) createTables(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	timestamp DateTime64(3),
	status LowCardinality(String),
	username String,
	source_ip String,
	port Int32,
	pid Int32,
	is_failed_login Bool,
	is_internal_ip Bool,
	hour_of_day Int32,
	day_of_week Int32,
	date String
) ENGINE = MergeTree ORDER BY (source_ip, timestamp)`, quoteIdent(w.database), quoteIdent(w.events)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	run_id String,
	generated_at DateTime64(3),
	source_ip String,
	anomaly_type LowCardinality(String),
	severity LowCardinality(String),
	details String
) ENGINE = MergeTree ORDER BY (generated_at, source_ip)`, quoteIdent(w.database), quoteIdent(w.anomalies)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	written_at DateTime64(3),
	total_logs Int64,
	unique_ips Int64,
	unique_users Int64,
	failed_logins Int64,
	success_rate Float64,
	internal_traffic_pct Float64,
	date_range_start Nullable(DateTime64(3)),
	date_range_end Nullable(DateTime64(3)),
	time_span_hours Float64,
	error String
) ENGINE = MergeTree ORDER BY written_at`, quoteIdent(w.database), quoteIdent(w.summary)),
	}
	for _, q := range ddl {
		if err := w.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create clickhouse table: %w", err)
		}
	}
	return nil
}

func eventRow(ev models.Event) []any {
	return []any{
		ev.Timestamp,
		string(ev.Status),
		ev.Username,
		ev.SourceIP,
		int32(ev.Port),
		int32(ev.PID),
		ev.IsFailedLogin,
		ev.IsInternalIP,
		int32(ev.Hour),
		int32(ev.Weekday),
		ev.Date,
	}
}

func summaryRow(at time.Time, s models.DatasetSummary) []any {
	return []any{
		at,
		int64(s.TotalLogs),
		int64(s.UniqueIPs),
		int64(s.UniqueUsers),
		int64(s.FailedLogins),
		s.SuccessRate,
		s.InternalTrafficPct,
		s.DateRangeStart,
		s.DateRangeEnd,
		s.TimeSpanHours,
		s.Error,
	}
}

func anomalyRow(runID string, generatedAt time.Time, a models.Anomaly) ([]any, error) {
	details, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal anomaly: %w", err)
	}
	h := a.Header()
	return []any{
		runID,
		generatedAt,
		h.SourceIP,
		string(h.AnomalyType),
		string(h.Severity),
		string(details),
	}, nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
