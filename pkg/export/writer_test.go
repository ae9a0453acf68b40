package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

func normalizedRecord(seq int64, t float64) *timeline.Record {
	rec := timeline.NewRaw(timeline.KindResourceFinish, seq, 100.0+t/1000, timeline.FinishData{Identifier: 1})
	rec.Time = t
	return rec
}

func TestJSONLWriterWritesRecordsAndHints(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, true)

	w.AcceptRecord(normalizedRecord(1, 250))
	w.AcceptHint(hintlet.Hint{
		HintletRule: "Uncompressed Resource",
		Timestamp:   250,
		Description: "URL http://example.com/ was not compressed with gzip or bzip2",
		RefRecord:   1,
		Severity:    hintlet.SeverityCritical,
	})

	sc := bufio.NewScanner(&buf)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var rec timeline.Record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal record line: %v", err)
	}
	if rec.Sequence != 1 || rec.Time != 250 {
		t.Errorf("record = seq %d time %v, want seq 1 time 250", rec.Sequence, rec.Time)
	}

	var h hintlet.Hint
	if err := json.Unmarshal([]byte(lines[1]), &h); err != nil {
		t.Fatalf("unmarshal hint line: %v", err)
	}
	if h.RefRecord != 1 || h.Severity != hintlet.SeverityCritical {
		t.Errorf("hint = %+v", h)
	}
}

func TestHintsOnlyMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, false)

	w.AcceptRecord(normalizedRecord(1, 0))
	w.AcceptHint(hintlet.Hint{HintletRule: "Uncompressed Resource", Severity: hintlet.SeverityInfo})

	sc := bufio.NewScanner(&buf)
	count := 0
	for sc.Scan() {
		count++
		var h hintlet.Hint
		if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
			t.Fatalf("line %d is not a hint: %v", count, err)
		}
	}
	if count != 1 {
		t.Fatalf("lines = %d, want 1 (hint only)", count)
	}
}

func TestFileWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewFileWriter(path, true)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	w.AcceptRecord(normalizedRecord(7, 500))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var rec timeline.Record
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Sequence != 7 {
		t.Errorf("sequence = %d, want 7", rec.Sequence)
	}
}

func TestFileWriterBadPath(t *testing.T) {
	if _, err := NewFileWriter(filepath.Join(t.TempDir(), "no", "such", "dir", "x.jsonl"), true); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
