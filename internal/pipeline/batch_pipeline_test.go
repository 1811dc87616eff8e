package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/internal/detect"
	"authwatch/internal/metrics"
	"authwatch/internal/transform/sshd"
	"authwatch/pkg/models"
)

type staticSource struct {
	lines  []string
	err    error
	closed bool
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) ReadLines(context.Context) ([]string, error) {
	return s.lines, s.err
}

func (s *staticSource) Close() error {
	s.closed = true
	return nil
}

type recordingSink struct {
	name     string
	failures int
	events   int
	summary  *models.DatasetSummary
	report   *models.AnomalyReport
	calls    int
	closed   bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) fail() error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	return nil
}

func (s *recordingSink) WriteEvents(_ context.Context, events models.EventSet) error {
	if err := s.fail(); err != nil {
		return err
	}
	s.events = len(events)
	return nil
}

func (s *recordingSink) WriteSummary(_ context.Context, summary models.DatasetSummary) error {
	if err := s.fail(); err != nil {
		return err
	}
	s.summary = &summary
	return nil
}

func (s *recordingSink) WriteReport(_ context.Context, report *models.AnomalyReport) error {
	if err := s.fail(); err != nil {
		return err
	}
	s.report = report
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func attackLines() []string {
	var lines []string
	for i := 0; i < 15; i++ {
		user := "root"
		if i%2 == 1 {
			user = "admin"
		}
		lines = append(lines, fmt.Sprintf("Jan 14 10:%02d:00 server sshd[%d]: Failed password for %s from 45.142.212.61 port %d ssh2",
			i, 2000+i, user, 50000+i))
	}
	lines = append(lines,
		"Jan 14 11:00:00 server sshd[3000]: Accepted password for johndoe from 192.168.1.10 port 40001 ssh2",
		"this line is garbage",
	)
	return lines
}

func newPipeline(src LineSource, sinks []Sink, m *metrics.Metrics, cfg Config) *BatchPipeline {
	transformer := sshd.NewTransformer(sshd.NewParser(sshd.Options{Year: 2026}))
	return NewBatchPipeline(src, transformer, detect.NewAggregator(detect.Config{}), sinks, m, cfg)
}

func TestRunEndToEnd(t *testing.T) {
	src := &staticSource{lines: attackLines()}
	sink := &recordingSink{name: "rec"}
	m := metrics.NewMetrics()
	p := newPipeline(src, []Sink{sink}, m, Config{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.SinkErrors)

	assert.Equal(t, 17, res.Lines)
	assert.Equal(t, 16, res.Transform.Parsed)
	assert.Equal(t, 1, res.Transform.Failed)
	assert.Len(t, res.Events, 16)
	assert.Equal(t, 2, res.Summary.UniqueIPs)

	require.NotNil(t, res.Report)
	assert.Len(t, res.Report.BruteForce, 1)
	assert.Len(t, res.Report.Geographic, 1)
	assert.Empty(t, res.Report.Breaches)

	assert.Equal(t, 16, sink.events)
	require.NotNil(t, sink.summary)
	assert.Equal(t, 16, sink.summary.TotalLogs)
	assert.Same(t, res.Report, sink.report)

	assert.Equal(t, 16.0, testutil.ToFloat64(m.LinesTotal.WithLabelValues("parsed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("BRUTE_FORCE", "MEDIUM")))

	require.NoError(t, p.Close())
	assert.True(t, sink.closed)
	assert.True(t, src.closed)
}

func TestRunSinkFailureKeepsResult(t *testing.T) {
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", failures: 100}
	m := metrics.NewMetrics()
	p := newPipeline(&staticSource{lines: attackLines()}, []Sink{bad, good}, m, Config{SinkAttempts: 2})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Error(t, res.SinkErrors)
	assert.ErrorContains(t, res.SinkErrors, "bad sink report")

	require.NotNil(t, res.Report)
	assert.Equal(t, 4, res.Report.Summary.TotalAnomalies)
	assert.NotNil(t, good.report)
	assert.Equal(t, 6, bad.calls)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("bad")))
}

func TestRunRetriesTransientSinkError(t *testing.T) {
	flaky := &recordingSink{name: "flaky", failures: 1}
	p := newPipeline(&staticSource{lines: attackLines()}, []Sink{flaky}, nil, Config{SinkAttempts: 3, SinkBackoff: time.Millisecond})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, res.SinkErrors)
	assert.Equal(t, 16, flaky.events)
}

func TestRunEmptyInput(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	p := newPipeline(&staticSource{}, []Sink{sink}, nil, Config{})

	res, err := p.Run(context.Background())
	require.ErrorIs(t, err, sshd.ErrEmptyInput)
	assert.Nil(t, res.Report)
	assert.Zero(t, sink.calls)
}

func TestRunNothingParses(t *testing.T) {
	p := newPipeline(&staticSource{lines: []string{"junk", "more junk"}}, nil, nil, Config{})

	res, err := p.Run(context.Background())
	require.ErrorIs(t, err, sshd.ErrEmptyInput)
	assert.Equal(t, 2, res.Transform.Failed)
	assert.Len(t, res.Transform.Samples, 2)
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("disk on fire")
	p := newPipeline(&staticSource{err: boom}, nil, nil, Config{})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, sshd.ErrEmptyInput)
}
