// Package export streams normalized records and hints out of the pipeline
// as JSON lines, for consumers that want a flat capture file or a piped
// stream rather than the badger store.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// JSONLWriter writes records and hints as JSON lines to an io.Writer. It
// satisfies both monitor sink contracts. Encoding failures are logged, not
// propagated; a broken output must not stall the pipeline.
type JSONLWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	records bool
}

// NewJSONLWriter wraps w. When records is false only hints are written.
func NewJSONLWriter(w io.Writer, records bool) *JSONLWriter {
	return &JSONLWriter{enc: json.NewEncoder(w), records: records}
}

// NewStdoutWriter writes JSON lines to stdout.
func NewStdoutWriter(records bool) *JSONLWriter {
	return NewJSONLWriter(os.Stdout, records)
}

// AcceptRecord writes one normalized record, if record output is enabled.
func (w *JSONLWriter) AcceptRecord(rec *timeline.Record) {
	if !w.records {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		slog.Error("export: encode record failed", "sequence", rec.Sequence, "error", err)
	}
}

// AcceptHint writes one hint.
func (w *JSONLWriter) AcceptHint(h hintlet.Hint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(h); err != nil {
		slog.Error("export: encode hint failed", "rule", h.HintletRule, "error", err)
	}
}

// FileWriter writes JSON lines to a file and owns the handle.
type FileWriter struct {
	*JSONLWriter
	file *os.File
}

// NewFileWriter creates (or appends to) the JSONL file at path.
func NewFileWriter(path string, records bool) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("export.NewFileWriter: %w", err)
	}
	return &FileWriter{
		JSONLWriter: NewJSONLWriter(f, records),
		file:        f,
	}, nil
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	return w.file.Close()
}
