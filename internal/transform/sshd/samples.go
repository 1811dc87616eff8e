package sshd

// FailureSamples is a fixed-capacity, append-only buffer of rejected lines.
type FailureSamples struct {
	limit   int
	samples []ParseError
}

// NewFailureSamples creates a buffer that keeps the first limit failures.
func NewFailureSamples(limit int) *FailureSamples {
	if limit < 0 {
		limit = 0
	}
	return &FailureSamples{limit: limit, samples: make([]ParseError, 0, limit)}
}

// Add records err if there is room left and reports whether it was kept.
func (f *FailureSamples) Add(err *ParseError) bool {
	if err == nil || len(f.samples) >= f.limit {
		return false
	}
	f.samples = append(f.samples, *err)
	return true
}

// Samples returns a copy of the retained failures.
func (f *FailureSamples) Samples() []ParseError {
	out := make([]ParseError, len(f.samples))
	copy(out, f.samples)
	return out
}

// Len returns the number of retained failures.
func (f *FailureSamples) Len() int {
	return len(f.samples)
}
