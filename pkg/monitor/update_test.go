package monitor

import (
	"testing"

	"github.com/pagetrace/pagetrace/pkg/timeline"
)

func update(seq int64, d timeline.ResourceUpdateData) *timeline.Record {
	return timeline.NewRaw(timeline.KindResourceUpdated, seq, 0, d)
}

func TestResourceUpdateDroppedBeforeBaseTime(t *testing.T) {
	sink := NewMemorySink()
	s := NewSession(nil, sink, nil)

	// An update before any base time means monitoring started after the
	// resource did; it has no replayable timestamp and is dropped.
	s.Feed(update(1, timeline.ResourceUpdateData{
		Identifier:      3,
		DidTimingChange: true,
		StartTime:       10.0,
	}))

	if _, ok := s.BaseTime(); ok {
		t.Fatal("resource updates must never establish a base time")
	}
	if n := len(sink.Records()); n != 0 {
		t.Fatalf("expected dropped update, got %d records", n)
	}
}

func TestResourceUpdateMilestonesNormalized(t *testing.T) {
	sink := NewMemorySink()
	s := NewSession(nil, sink, nil)
	s.ForceBaseTime(10.0)

	s.Feed(update(1, timeline.ResourceUpdateData{
		Identifier:           3,
		DidTimingChange:      true,
		StartTime:            11.0,
		ResponseReceivedTime: 11.5,
		EndTime:              12.0,
		// Load and DOM-content milestones not yet known.
	}))

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 forwarded update, got %d", len(recs))
	}
	rec := recs[0]
	d := rec.Data.(timeline.ResourceUpdateData)

	if d.StartTime != 1000 {
		t.Errorf("expected start 1000, got %v", d.StartTime)
	}
	if d.ResponseReceivedTime != 1500 {
		t.Errorf("expected response 1500, got %v", d.ResponseReceivedTime)
	}
	if d.EndTime != 2000 {
		t.Errorf("expected end 2000, got %v", d.EndTime)
	}
	// Absent milestones normalize non-positive and must stay untouched.
	if d.LoadEventTime != 0 || d.DomContentEventTime != 0 {
		t.Errorf("unknown milestones must not be rewritten: load=%v dom=%v",
			d.LoadEventTime, d.DomContentEventTime)
	}
	// The representative time is the latest milestone in the fixed order.
	if rec.Time != 2000 {
		t.Errorf("expected representative time 2000, got %v", rec.Time)
	}
}

func TestResourceUpdateRepresentativeTimeOrder(t *testing.T) {
	sink := NewMemorySink()
	s := NewSession(nil, sink, nil)
	s.ForceBaseTime(10.0)

	// DOM-content is processed after load, so it wins even though the load
	// milestone's value is larger.
	s.Feed(update(1, timeline.ResourceUpdateData{
		Identifier:          3,
		DidTimingChange:     true,
		LoadEventTime:       13.0,
		DomContentEventTime: 12.0,
	}))

	rec := sink.Records()[0]
	if rec.Time != 2000 {
		t.Errorf("expected DOM-content milestone (2000) to win, got %v", rec.Time)
	}
}

func TestResourceUpdatePreBaseMilestoneIgnored(t *testing.T) {
	sink := NewMemorySink()
	s := NewSession(nil, sink, nil)
	s.ForceBaseTime(10.0)

	// A milestone before the base time normalizes negative; it must neither
	// be rewritten nor clobber the representative time.
	s.Feed(update(1, timeline.ResourceUpdateData{
		Identifier:      3,
		DidTimingChange: true,
		StartTime:       11.0,
		EndTime:         9.5,
	}))

	rec := sink.Records()[0]
	d := rec.Data.(timeline.ResourceUpdateData)
	if d.EndTime != 9.5 {
		t.Errorf("pre-base milestone should stay untouched, got %v", d.EndTime)
	}
	if rec.Time != 1000 {
		t.Errorf("representative time should stay at start (1000), got %v", rec.Time)
	}
}

func TestResourceUpdateWithoutTimingChange(t *testing.T) {
	sink := NewMemorySink()
	s := NewSession(nil, sink, nil)
	s.ForceBaseTime(10.0)

	s.Feed(update(1, timeline.ResourceUpdateData{
		Identifier: 3,
		StartTime:  11.0, // ignored: timings did not change
	}))

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected update forwarded, got %d records", len(recs))
	}
	d := recs[0].Data.(timeline.ResourceUpdateData)
	if d.StartTime != 11.0 {
		t.Errorf("milestones must not be rewritten without didTimingChange, got %v", d.StartTime)
	}
	if !recs[0].Normalized() {
		t.Error("forwarded update must carry a normalized time")
	}
}
