package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authwatch/internal/detect"
	"authwatch/internal/logger"
	"authwatch/internal/metrics"
	"authwatch/internal/summary"
	"authwatch/internal/transform/sshd"
	"authwatch/pkg/models"
)

// Stage names used for timings and metrics.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
	StageDetect    = "detect"
)

// Config controls sink retry behavior.
type Config struct {
	// SinkAttempts is the number of tries per sink write.
	SinkAttempts int
	SinkBackoff  time.Duration
}

// Timings holds the wall time of each stage.
type Timings struct {
	Extract   time.Duration
	Transform time.Duration
	Load      time.Duration
	Detect    time.Duration
	Total     time.Duration
}

// Result is everything one run produced. It is returned intact even when
// sinks fail; sink failures are joined into SinkErrors.
type Result struct {
	Lines          int
	Transform      *sshd.Result
	Events         models.EventSet
	Summary        models.DatasetSummary
	Report         *models.AnomalyReport
	Timings        Timings
	ProcessingRate float64
	SinkErrors     error
}

// BatchPipeline runs extract, transform, load and detect over one batch.
type BatchPipeline struct {
	source      LineSource
	transformer *sshd.Transformer
	aggregator  *detect.Aggregator
	sinks       []Sink
	metrics     *metrics.Metrics
	attempts    int
	backoff     time.Duration
}

// NewBatchPipeline creates a batch pipeline. metrics may be nil.
func NewBatchPipeline(source LineSource, transformer *sshd.Transformer, aggregator *detect.Aggregator, sinks []Sink, m *metrics.Metrics, cfg Config) *BatchPipeline {
	if cfg.SinkAttempts <= 0 {
		cfg.SinkAttempts = 1
	}
	if cfg.SinkBackoff < 0 {
		cfg.SinkBackoff = 0
	}
	return &BatchPipeline{
		source:      source,
		transformer: transformer,
		aggregator:  aggregator,
		sinks:       sinks,
		metrics:     m,
		attempts:    cfg.SinkAttempts,
		backoff:     cfg.SinkBackoff,
	}
}

// Run executes the pipeline once. Extract and transform failures abort the
// run; sshd.ErrEmptyInput is returned wrapped when nothing could be parsed.
func (p *BatchPipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}
	logger.Infof("Batch pipeline started: source=%s sinks=%d", p.source.Name(), len(p.sinks))

	stageStart := time.Now()
	lines, err := p.source.ReadLines(ctx)
	if err != nil {
		return res, fmt.Errorf("extract: %w", err)
	}
	res.Lines = len(lines)
	res.Timings.Extract = p.observe(StageExtract, stageStart)

	stageStart = time.Now()
	tr, err := p.transformer.Transform(lines)
	res.Transform = tr
	res.Timings.Transform = p.observe(StageTransform, stageStart)
	if tr != nil && p.metrics != nil {
		p.metrics.ObserveParse(tr.Parsed, tr.Failed, tr.SuccessRate())
	}
	if err != nil {
		return res, fmt.Errorf("transform: %w", err)
	}
	res.Events = tr.Events
	if p.metrics != nil {
		p.metrics.ObserveEvents(res.Events)
	}

	stageStart = time.Now()
	res.Summary = summary.Summarize(res.Events)
	var sinkErrs []error
	for _, s := range p.sinks {
		if err := p.write(ctx, s, "events", func() error { return s.WriteEvents(ctx, res.Events) }); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
		if err := p.write(ctx, s, "summary", func() error { return s.WriteSummary(ctx, res.Summary) }); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	res.Timings.Load = p.observe(StageLoad, stageStart)

	stageStart = time.Now()
	report, err := p.aggregator.Run(ctx, res.Events)
	if err != nil {
		res.SinkErrors = errors.Join(sinkErrs...)
		return res, fmt.Errorf("detect: %w", err)
	}
	res.Report = report
	if p.metrics != nil {
		p.metrics.ObserveReport(report)
	}
	for _, s := range p.sinks {
		if err := p.write(ctx, s, "report", func() error { return s.WriteReport(ctx, report) }); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	res.Timings.Detect = p.observe(StageDetect, stageStart)

	res.SinkErrors = errors.Join(sinkErrs...)
	res.Timings.Total = time.Since(start)
	if secs := res.Timings.Total.Seconds(); secs > 0 {
		res.ProcessingRate = float64(len(res.Events)) / secs
	}
	if p.metrics != nil {
		p.metrics.ProcessingRate.Set(res.ProcessingRate)
	}

	logger.Infof("Pipeline completed: records=%d duration=%s rate=%.0f/s parse_success=%.1f%% anomalies=%d critical=%d",
		len(res.Events), res.Timings.Total, res.ProcessingRate, tr.SuccessRate(),
		report.Summary.TotalAnomalies, report.Summary.CriticalThreats)
	logger.Infof("Stage timings: extract=%s transform=%s load=%s detect=%s",
		res.Timings.Extract, res.Timings.Transform, res.Timings.Load, res.Timings.Detect)
	if res.SinkErrors != nil {
		logger.Warnf("%d sink writes failed", len(sinkErrs))
	}
	return res, nil
}

// Close releases the source and every sink.
func (p *BatchPipeline) Close() error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			logger.Errorf("Failed to close %s sink: %v", s.Name(), err)
			errs = append(errs, err)
		}
	}
	if p.source != nil {
		if err := p.source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *BatchPipeline) observe(stage string, start time.Time) time.Duration {
	d := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, d)
	}
	logger.Debugf("Stage %s took %s", stage, d)
	return d
}

func (p *BatchPipeline) write(ctx context.Context, s Sink, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		logger.Errorf("Failed to write %s to %s sink (attempt %d/%d): %v", what, s.Name(), attempt, p.attempts, err)
		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s sink %s: %w", s.Name(), what, ctx.Err())
		case <-time.After(p.backoff):
		}
	}
	if p.metrics != nil {
		p.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
	}
	return fmt.Errorf("%s sink %s: %w", s.Name(), what, err)
}
