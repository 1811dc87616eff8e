package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/internal/pipeline"
	"authwatch/internal/transform/sshd"
	"authwatch/pkg/models"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(fmt.Errorf("transform: %w", sshd.ErrEmptyInput)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &pipeline.Result{
		Transform: &sshd.Result{Parsed: 9, Failed: 1},
		Report: &models.AnomalyReport{
			RunID:     "run-1",
			Summary:   models.ReportSummary{TotalAnomalies: 2, CriticalThreats: 1, BreachCount: 1, BruteForceCount: 1},
			Offenders: []models.Offender{{SourceIP: "45.142.212.61", Score: 12, Severity: models.SeverityCritical}},
		},
		Timings: pipeline.Timings{Total: time.Second},
	})

	out := buf.String()
	assert.Contains(t, out, "9 parsed, 1 rejected (90.0% success)")
	assert.Contains(t, out, "anomalies: 2 total, 1 critical")
	assert.Contains(t, out, "offender 45.142.212.61 score=12")
}

func TestAnalyzeCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "auth.log")
	var lines bytes.Buffer
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&lines, "Jan 14 10:%02d:00 server sshd[1%03d]: Failed password for root from 45.142.212.61 port 5%04d ssh2\n", i, i, i)
	}
	require.NoError(t, os.WriteFile(logPath, lines.Bytes(), 0644))

	outDir := filepath.Join(dir, "out")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"analyze",
		"--config", writeTestConfig(t, dir),
		"--env-file", filepath.Join(dir, "none.env"),
		"--input", logPath,
		"--year", "2026",
		"--output-dir", outDir,
	})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "brute force:          1")
	assert.FileExists(t, filepath.Join(outDir, "processed_logs.csv"))
	assert.FileExists(t, filepath.Join(outDir, "anomaly_brute_force.csv"))
	assert.FileExists(t, filepath.Join(outDir, "processed_logs.parquet"))
	assert.NoFileExists(t, filepath.Join(outDir, "anomaly_breaches.csv"))
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "authwatch.yml")
	body := "authwatch:\n  output:\n    csv:\n      enabled: true\n    parquet:\n      enabled: true\n  logging:\n    enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}
