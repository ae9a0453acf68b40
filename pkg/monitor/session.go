// Package monitor turns the raw capture stream of one monitoring session
// into a causally consistent, relative-time record stream and fans it out to
// a record sink and the hintlet engine.
//
// The pipeline is strictly serial: each record is fully processed, including
// any synthesized records and the complete rule fan-out, before the next one
// is accepted. A Session is not safe for concurrent use.
package monitor

import (
	"fmt"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/metrics"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// Session holds the per-session normalization state: the base time, the
// pre-base-time buffer, and the page-transition tracker. Construct one
// Session per monitoring session; sessions share nothing.
type Session struct {
	// baseTime is the session reference point in absolute milliseconds.
	// Negative until established; once set it never changes.
	baseTime float64

	// pending buffers resource starts that arrived before the base time
	// was established. Drained exactly once, then nil forever.
	pending []*timeline.Record

	// Page-transition state: the identifier of the main resource currently
	// being navigated to, if any.
	currentPageSet bool
	currentPageID  int64

	engine  *hintlet.Engine
	records RecordSink
	hints   HintSink
}

// NewSession creates a session delivering normalized records to records and
// hints from engine's rules to hints. Either sink and the engine may be nil.
func NewSession(engine *hintlet.Engine, records RecordSink, hints HintSink) *Session {
	return &Session{
		baseTime: -1,
		engine:   engine,
		records:  records,
		hints:    hints,
	}
}

// BaseTime returns the established base time in absolute milliseconds, or
// false if no base time exists yet.
func (s *Session) BaseTime() (float64, bool) {
	if s.baseTime < 0 {
		return 0, false
	}
	return s.baseTime, true
}

// Feed accepts one raw record from the capture source. Resource updates are
// routed to the merger; everything else flows through the normalizer and the
// page-transition detector.
func (s *Session) Feed(rec *timeline.Record) {
	if rec.Type == timeline.KindResourceUpdated {
		s.feedResourceUpdate(rec)
		return
	}
	s.onTimelineRecord(rec)
}

// ForceBaseTime establishes the base time from an explicit absolute-seconds
// reference point and replays any buffered records. Callers that know the
// true session start can use this instead of waiting for an eligible record.
func (s *Session) ForceBaseTime(startTimeSeconds float64) {
	if s.baseTime >= 0 {
		panic("monitor: base time already established")
	}
	s.establishBaseTime(startTimeSeconds)
}

func (s *Session) onTimelineRecord(rec *timeline.Record) {
	switch rec.Type {
	case timeline.KindResourceWillSend:
		// A resource start may be a child of some other traced operation;
		// using it as the reference point could yield negative times for
		// everything else. Buffer until a record that is not a resource
		// start decides the base time.
		if s.baseTime < 0 {
			s.pending = append(s.pending, rec)
			metrics.RecordsBuffered.Inc()
			return
		}

		if d, ok := rec.Data.(timeline.WillSendData); ok && d.IsMainResource {
			if !s.currentPageSet || s.currentPageID != d.Identifier {
				s.currentPageSet = true
				s.currentPageID = d.Identifier
				tab := timeline.NewRaw(timeline.KindTabChange, rec.Sequence,
					rec.StartTime, timeline.TabChangeData{URL: d.URL})
				metrics.TabChanges.Inc()
				s.normalizeAndDispatch(tab)
			} else {
				// Identifiers are recycled across the request/response
				// cycles of one redirecting navigation. A second start for
				// the tracked identifier means the redirect completed;
				// forget it rather than fire a second transition.
				s.currentPageSet = false
			}
		}
	case timeline.KindResourceResponse:
		// A completed non-redirecting load must not leave a stale
		// identifier behind, or the next distinct navigation would be
		// matched against it.
		s.currentPageSet = false
	}

	s.normalizeAndDispatch(rec)
}

// normalizeAndDispatch establishes the base time if needed (replaying any
// buffered records first), rewrites the record's time to session-relative
// milliseconds, and forwards it.
func (s *Session) normalizeAndDispatch(rec *timeline.Record) {
	if s.baseTime < 0 {
		s.establishBaseTimeFrom(rec)
	}
	rec.Time = s.normalizeTime(rec.StartTime)
	s.forward(rec)
}

// establishBaseTimeFrom fixes the base time at the earliest known reference
// point: the minimum of the trigger's start time and every buffered start.
func (s *Session) establishBaseTimeFrom(trigger *timeline.Record) {
	base := trigger.StartTime
	for _, p := range s.pending {
		if p.StartTime < base {
			base = p.StartTime
		}
	}
	s.establishBaseTime(base)
}

func (s *Session) establishBaseTime(startTimeSeconds float64) {
	if s.baseTime >= 0 {
		panic("monitor: emptying the record buffer after the base time was established")
	}
	s.baseTime = startTimeSeconds * 1000

	// The buffered starts came in first and still need normalization and
	// the page-transition logic, so replay them through the live path in
	// their original arrival order. The buffer is gone after this; nothing
	// may append to it again.
	pending := s.pending
	s.pending = nil
	metrics.RecordsReplayed.Add(float64(len(pending)))
	for _, rec := range pending {
		s.onTimelineRecord(rec)
	}
}

// normalizeTime converts an absolute-seconds capture timestamp to
// milliseconds relative to the base time.
func (s *Session) normalizeTime(seconds float64) float64 {
	if s.baseTime < 0 {
		panic("monitor: normalizeTime called before a base time was established")
	}
	return seconds*1000 - s.baseTime
}

// forward hands a normalized record to the record sink and the rule engine.
func (s *Session) forward(rec *timeline.Record) {
	if !rec.Normalized() {
		panic(fmt.Sprintf("monitor: %s record (sequence %d) reached a sink without a normalized time",
			rec.Type, rec.Sequence))
	}
	metrics.RecordsNormalized.WithLabelValues(rec.Type.String()).Inc()

	if s.records != nil {
		s.records.AcceptRecord(rec)
	}
	if s.engine != nil {
		for _, h := range s.engine.Dispatch(rec) {
			if s.hints != nil {
				s.hints.AcceptHint(h)
			}
		}
	}
}
