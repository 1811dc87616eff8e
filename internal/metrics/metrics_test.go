package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/pkg/models"
)

func TestObserveReport(t *testing.T) {
	m := NewMetrics()
	report := &models.AnomalyReport{
		BruteForce: []models.BruteForceAnomaly{
			{AnomalyHeader: models.AnomalyHeader{SourceIP: "45.142.212.61", AnomalyType: models.AnomalyBruteForce, Severity: models.SeverityMedium}},
		},
		Breaches: []models.BreachAnomaly{
			{AnomalyHeader: models.AnomalyHeader{SourceIP: "103.75.201.12", AnomalyType: models.AnomalyBreach, Severity: models.SeverityHigh}},
			{AnomalyHeader: models.AnomalyHeader{SourceIP: "185.220.101.45", AnomalyType: models.AnomalyBreach, Severity: models.SeverityHigh}},
		},
		RuleMatches: []models.RuleMatch{{SourceIP: "45.142.212.61"}},
	}

	m.ObserveReport(report)
	m.ObserveReport(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("BRUTE_FORCE", "MEDIUM")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("POSSIBLE_BREACH", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleMatches))
}

func TestObserveParseAndStage(t *testing.T) {
	m := NewMetrics()
	m.ObserveParse(90, 10, 90)
	m.ObserveStage("detect", 1500*time.Millisecond)
	m.ObserveEvents(models.EventSet{{Status: models.StatusFailed}, {Status: models.StatusFailed}, {Status: models.StatusAccepted}})

	assert.Equal(t, 90.0, testutil.ToFloat64(m.LinesTotal.WithLabelValues("parsed")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.LinesTotal.WithLabelValues("failed")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.ParseSuccessPct))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.StageDuration.WithLabelValues("detect")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("Failed")))
}

func TestNewMetricsTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveStage("extract", time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "authwatch.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `authwatch_stage_duration_seconds{stage="extract"} 1`)
}

func TestPush(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/metrics/job/authwatch") {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.ProcessingRate.Set(1200)
	require.NoError(t, m.Push(srv.URL, ""))
	assert.Equal(t, int32(1), hits.Load())
}
