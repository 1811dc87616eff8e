package sshd

import (
	"errors"
	"fmt"

	"authwatch/internal/logger"
	"authwatch/pkg/models"
)

// ErrEmptyInput marks a run with no usable data: either no lines were
// supplied or none of them parsed.
var ErrEmptyInput = errors.New("no usable data")

// DefaultSampleLimit is the number of rejected lines kept for diagnostics.
const DefaultSampleLimit = 5

// Result is the outcome of transforming one batch of lines.
type Result struct {
	Events  models.EventSet
	Parsed  int
	Failed  int
	Samples []ParseError
}

// Total returns the number of lines seen.
func (r *Result) Total() int {
	return r.Parsed + r.Failed
}

// SuccessRate returns the percentage of lines that parsed.
func (r *Result) SuccessRate() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(r.Parsed) / float64(total) * 100
}

// Transformer parses batches of raw lines into an EventSet.
type Transformer struct {
	parser      *Parser
	sampleLimit int
}

// NewTransformer creates a transformer around parser.
func NewTransformer(parser *Parser) *Transformer {
	if parser == nil {
		parser = NewParser(Options{})
	}
	return &Transformer{parser: parser, sampleLimit: DefaultSampleLimit}
}

// Transform parses every line. Rejected lines are counted and the first few
// are sampled; they never reach the EventSet. ErrEmptyInput is returned, with
// the partial Result, when no line could be turned into an Event.
func (t *Transformer) Transform(lines []string) (*Result, error) {
	res := &Result{}
	if len(lines) == 0 {
		return res, fmt.Errorf("%w: zero lines supplied", ErrEmptyInput)
	}

	samples := NewFailureSamples(t.sampleLimit)
	events := make(models.EventSet, 0, len(lines))
	for _, line := range lines {
		ev, err := t.parser.Parse(line)
		if err != nil {
			res.Failed++
			var perr *ParseError
			if errors.As(err, &perr) {
				samples.Add(perr)
			}
			continue
		}
		events = append(events, ev)
		res.Parsed++
	}
	res.Events = events
	res.Samples = samples.Samples()

	if res.Parsed == 0 {
		logger.Errorf("No logs could be parsed (%d lines rejected)", res.Failed)
		for _, s := range res.Samples {
			logger.Errorf("  sample: %s", s.Error())
		}
		return res, fmt.Errorf("%w: none of %d lines parsed", ErrEmptyInput, res.Failed)
	}

	logger.Infof("Transformed %d log entries (success rate %.1f%%)", res.Parsed, res.SuccessRate())
	if res.Failed > 0 {
		logger.Warnf("Failed to parse %d lines", res.Failed)
		for i, s := range res.Samples {
			if i == 3 {
				break
			}
			logger.Warnf("  sample: %s", s.Error())
		}
	}
	return res, nil
}
