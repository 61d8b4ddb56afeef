// Package testutil holds deterministic stand-ins used by tests and the
// scenario harness.
package testutil

import "sync/atomic"

// Sequence is a resettable logical clock. The first call to Next returns 1.
//
// Harness traces are stamped with a Sequence rather than wall time so the
// same scenario always produces byte-identical golden output.
//
// Thread-safety: all methods are safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// NewSequence returns a sequence positioned at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next advances the sequence and returns the new value.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last value handed out, or 0.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}

// Reset rewinds to 0 so a scenario can be replayed with identical stamps.
func (s *Sequence) Reset() {
	s.n.Store(0)
}
