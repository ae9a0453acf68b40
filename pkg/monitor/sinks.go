package monitor

import (
	"sync"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// RecordSink receives the normalized record stream. Implementations must not
// retain and mutate records; they are shared downstream.
type RecordSink interface {
	AcceptRecord(rec *timeline.Record)
}

// HintSink receives hints as rules emit them.
type HintSink interface {
	AcceptHint(h hintlet.Hint)
}

// RecordSinkFunc adapts a function to a RecordSink.
type RecordSinkFunc func(rec *timeline.Record)

// AcceptRecord calls f.
func (f RecordSinkFunc) AcceptRecord(rec *timeline.Record) { f(rec) }

// HintSinkFunc adapts a function to a HintSink.
type HintSinkFunc func(h hintlet.Hint)

// AcceptHint calls f.
func (f HintSinkFunc) AcceptHint(h hintlet.Hint) { f(h) }

// MemorySink stores everything it receives, for testing and small captures.
type MemorySink struct {
	mu      sync.Mutex
	records []*timeline.Record
	hints   []hintlet.Hint
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// AcceptRecord stores a record.
func (m *MemorySink) AcceptRecord(rec *timeline.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// AcceptHint stores a hint.
func (m *MemorySink) AcceptHint(h hintlet.Hint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints = append(m.hints, h)
}

// Records returns all stored records in arrival order.
func (m *MemorySink) Records() []*timeline.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*timeline.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Hints returns all stored hints in emission order.
func (m *MemorySink) Hints() []hintlet.Hint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hintlet.Hint, len(m.hints))
	copy(out, m.hints)
	return out
}
