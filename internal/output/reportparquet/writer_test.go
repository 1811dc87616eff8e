package reportparquet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/pkg/models"
)

func TestWriteEventsRoundTripsColumns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "processed")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	ts := time.Date(2026, 1, 14, 10, 15, 0, 0, time.UTC)
	events := models.EventSet{
		{Timestamp: ts, Status: models.StatusFailed, Username: "root", SourceIP: "45.142.212.61", Port: 50022, PID: 4242,
			IsFailedLogin: true, Hour: 10, Weekday: ts.Weekday(), Date: "2026-01-14"},
		{Timestamp: ts.Add(time.Minute), Status: models.StatusAccepted, Username: "alice", SourceIP: "192.168.1.20", Port: 40001, PID: 77,
			IsInternalIP: true, Hour: 10, Weekday: ts.Weekday(), Date: "2026-01-14"},
	}
	require.NoError(t, w.WriteEvents(context.Background(), events))
	assert.Equal(t, filepath.Join(dir, EventsFile), w.Path())

	rows, err := parquet.ReadFile[EventRow](w.Path())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].Timestamp.Equal(ts))
	assert.Equal(t, "Failed", rows[0].Status)
	assert.Equal(t, "45.142.212.61", rows[0].SourceIP)
	assert.EqualValues(t, 50022, rows[0].Port)
	assert.True(t, rows[0].IsFailedLogin)
	assert.EqualValues(t, 2, rows[0].DayOfWeek)
	assert.Equal(t, "Wednesday", rows[0].WeekdayName)

	assert.Equal(t, "alice", rows[1].Username)
	assert.True(t, rows[1].IsInternalIP)
	assert.False(t, rows[1].IsFailedLogin)
}

func TestWriteEventsSkipsEmptySet(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.WriteEvents(context.Background(), nil))
	assert.Empty(t, w.Path())
	assert.NoFileExists(t, filepath.Join(w.dir, EventsFile))
}

func TestSummaryAndReportAreIgnored(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, w.WriteSummary(context.Background(), models.DatasetSummary{TotalLogs: 3}))
	assert.NoError(t, w.WriteReport(context.Background(), &models.AnomalyReport{}))
	assert.Equal(t, "parquet", w.Name())
	assert.NoError(t, w.Close())
}
