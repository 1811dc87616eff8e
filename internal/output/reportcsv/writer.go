package reportcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

const (
	EventsFile             = "processed_logs.csv"
	SummaryFile            = "summary_stats.csv"
	BruteForceFile         = "anomaly_brute_force.csv"
	VulnerableAccountsFile = "anomaly_vulnerable_accounts.csv"
	GeographicFile         = "anomaly_geographic.csv"
	BreachesFile           = "anomaly_breaches.csv"

	timeLayout = "2006-01-02 15:04:05"
)

// Writer writes pipeline outputs as CSV tables in one directory.
type Writer struct {
	dir     string
	written []string
}

// NewWriter creates a CSV writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	logger.Infof("CSV writer initialized: %s", dir)
	return &Writer{dir: dir}, nil
}

// Name returns the sink identifier.
func (w *Writer) Name() string {
	return "csv"
}

// Files returns the paths written so far.
func (w *Writer) Files() []string {
	return append([]string(nil), w.written...)
}

// WriteEvents writes the normalized event table.
func (w *Writer) WriteEvents(_ context.Context, events models.EventSet) error {
	if events.Empty() {
		return nil
	}
	header := []string{
		"timestamp", "status", "username", "source_ip", "port", "pid",
		"is_failed_login", "hour_of_day", "day_of_week", "is_internal_ip",
		"date", "weekday_name",
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			formatTime(ev.Timestamp),
			string(ev.Status),
			ev.Username,
			ev.SourceIP,
			strconv.Itoa(ev.Port),
			strconv.Itoa(ev.PID),
			formatBool(ev.IsFailedLogin),
			strconv.Itoa(ev.Hour),
			strconv.Itoa(weekdayIndex(ev.Weekday)),
			formatBool(ev.IsInternalIP),
			ev.Date,
			ev.WeekdayName(),
		})
	}
	return w.writeTable(EventsFile, header, rows)
}

// WriteSummary writes the one-row dataset summary.
func (w *Writer) WriteSummary(_ context.Context, s models.DatasetSummary) error {
	header := []string{
		"total_logs", "unique_ips", "unique_users", "failed_logins", "success_rate",
		"internal_traffic_pct", "date_range_start", "date_range_end", "time_span_hours",
	}
	row := []string{
		strconv.Itoa(s.TotalLogs),
		strconv.Itoa(s.UniqueIPs),
		strconv.Itoa(s.UniqueUsers),
		strconv.Itoa(s.FailedLogins),
		formatFloat(s.SuccessRate),
		formatFloat(s.InternalTrafficPct),
		formatTimePtr(s.DateRangeStart),
		formatTimePtr(s.DateRangeEnd),
		formatFloat(s.TimeSpanHours),
	}
	if s.Error != "" {
		header = append(header, "error")
		row = append(row, s.Error)
	}
	return w.writeTable(SummaryFile, header, [][]string{row})
}

// WriteReport writes one table per non-empty anomaly collection.
func (w *Writer) WriteReport(_ context.Context, report *models.AnomalyReport) error {
	if report == nil {
		return nil
	}

	if len(report.BruteForce) > 0 {
		rows := make([][]string, 0, len(report.BruteForce))
		for _, a := range report.BruteForce {
			rows = append(rows, []string{
				a.SourceIP,
				strconv.Itoa(a.FailedCount),
				formatTime(a.FirstAttempt),
				formatTime(a.LastAttempt),
				strings.Join(a.TargetedUsernames, ";"),
				formatFloat(a.DurationMinutes),
				formatFloat(a.AttemptsPerHour),
				strconv.Itoa(a.NumUsersTargeted),
				string(a.AnomalyType),
				string(a.Severity),
			})
		}
		header := []string{
			"source_ip", "failed_count", "first_attempt", "last_attempt", "targeted_users",
			"duration_minutes", "attempts_per_hour", "num_users_targeted", "anomaly_type", "severity",
		}
		if err := w.writeTable(BruteForceFile, header, rows); err != nil {
			return err
		}
	}

	if len(report.VulnerableAccounts) > 0 {
		rows := make([][]string, 0, len(report.VulnerableAccounts))
		for _, a := range report.VulnerableAccounts {
			rows = append(rows, []string{
				a.SourceIP, a.Username, strconv.Itoa(a.Attempts), string(a.AnomalyType), string(a.Severity),
			})
		}
		header := []string{"source_ip", "username", "attempts", "anomaly_type", "severity"}
		if err := w.writeTable(VulnerableAccountsFile, header, rows); err != nil {
			return err
		}
	}

	if len(report.Geographic) > 0 {
		rows := make([][]string, 0, len(report.Geographic))
		for _, a := range report.Geographic {
			rows = append(rows, []string{
				a.SourceIP,
				a.Location,
				strconv.Itoa(a.TotalAttempts),
				strconv.Itoa(a.FailedAttempts),
				strconv.Itoa(a.SuccessAttempts),
				string(a.AnomalyType),
				string(a.Severity),
			})
		}
		header := []string{
			"source_ip", "location", "total_attempts", "failed_attempts", "success_attempts", "anomaly_type", "severity",
		}
		if err := w.writeTable(GeographicFile, header, rows); err != nil {
			return err
		}
	}

	if len(report.Breaches) > 0 {
		rows := make([][]string, 0, len(report.Breaches))
		for _, a := range report.Breaches {
			rows = append(rows, []string{
				a.SourceIP,
				a.Username,
				strconv.Itoa(a.FailedAttemptsBeforeSuccess),
				formatTime(a.BreachTimestamp),
				string(a.AnomalyType),
				string(a.Severity),
			})
		}
		header := []string{
			"source_ip", "username", "failed_attempts_before_success", "breach_timestamp", "anomaly_type", "severity",
		}
		if err := w.writeTable(BreachesFile, header, rows); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; each table is closed once written.
func (w *Writer) Close() error {
	return nil
}

func (w *Writer) writeTable(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	w.written = append(w.written, path)
	logger.Infof("Loaded %d records to %s", len(rows), path)
	return nil
}

// weekdayIndex numbers days Monday=0 through Sunday=6.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
