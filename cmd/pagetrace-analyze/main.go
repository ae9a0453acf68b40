// pagetrace-analyze replays a JSONL capture of raw timeline records through
// the normalization pipeline and the hintlet engine, printing the resulting
// hints (and optionally the normalized stream) as JSON lines.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pagetrace/pagetrace/pkg/config"
	"github.com/pagetrace/pagetrace/pkg/export"
	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/hintlet/rules"
	"github.com/pagetrace/pagetrace/pkg/metrics"
	"github.com/pagetrace/pagetrace/pkg/monitor"
	"github.com/pagetrace/pagetrace/pkg/store"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	inputPath := flag.String("input", "-", "JSONL capture file, or - for stdin")
	outputPath := flag.String("output", "-", "JSONL output file, or - for stdout")
	dumpRecords := flag.Bool("records", false, "Also print the normalized record stream")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	in := os.Stdin
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			slog.Error("failed to open capture", "path", *inputPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if cfg.Metrics.MetricsEnabled() {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			if err := metrics.MetricsServer(cfg.Metrics.Addr, stop); err != nil {
				slog.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	engine := hintlet.NewEngine()
	if !cfg.Rules.RuleDisabled(rules.UncompressedResourceName) {
		engine.Register(rules.NewUncompressedResourceWithOptions(rules.UncompressedResourceOptions{
			MinSize:           cfg.Rules.NotGzip.MinSize,
			CompressibleTypes: cfg.Rules.NotGzip.CompressibleTypes,
			AcceptedEncodings: cfg.Rules.NotGzip.AcceptedEncodings,
		}))
	}

	var writer interface {
		AcceptRecord(*timeline.Record)
		AcceptHint(hintlet.Hint)
	}
	if *outputPath != "-" {
		fw, err := export.NewFileWriter(*outputPath, *dumpRecords)
		if err != nil {
			slog.Error("failed to open output", "path", *outputPath, "error", err)
			os.Exit(1)
		}
		defer fw.Close()
		writer = fw
	} else {
		writer = export.NewStdoutWriter(*dumpRecords)
	}
	var recordSink monitor.RecordSink = monitor.RecordSinkFunc(writer.AcceptRecord)
	var hintSink monitor.HintSink = monitor.HintSinkFunc(writer.AcceptHint)

	if cfg.Store.Enabled {
		ts, err := store.Open(cfg.Store.Path)
		if err != nil {
			slog.Error("failed to open trace store", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		defer ts.Close()
		slog.Info("trace store open", "path", cfg.Store.Path, "session", ts.SessionID())
		metrics.RegisterHealthCheck("trace_db", ts.Ping)

		printRecords, printHints := recordSink, hintSink
		recordSink = monitor.RecordSinkFunc(func(rec *timeline.Record) {
			ts.AcceptRecord(rec)
			printRecords.AcceptRecord(rec)
		})
		hintSink = monitor.HintSinkFunc(func(h hintlet.Hint) {
			ts.AcceptHint(h)
			printHints.AcceptHint(h)
		})
	}

	session := monitor.NewSession(engine, recordSink, hintSink)
	if cfg.Monitor.BaseTime > 0 {
		session.ForceBaseTime(cfg.Monitor.BaseTime)
	}

	count, err := replay(in, session)
	if err != nil {
		slog.Error("replay failed", "error", err)
		os.Exit(1)
	}
	slog.Info("replay complete", "records", count)
}

// replay feeds every JSONL record from r into the session in file order.
func replay(r io.Reader, session *monitor.Session) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec timeline.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return count, fmt.Errorf("record %d: %w", count+1, err)
		}
		session.Feed(&rec)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read capture: %w", err)
	}
	return count, nil
}
