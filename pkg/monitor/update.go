package monitor

import (
	"math"

	"github.com/pagetrace/pagetrace/pkg/metrics"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// feedResourceUpdate rewrites the absolute lifecycle milestones embedded in
// a resource update to session-relative milliseconds and derives the
// update's representative time from the latest milestone present.
//
// Updates never establish a base time. One arriving before the base time
// exists means monitoring started after the resource did; it carries no
// replayable timestamp, so it is dropped rather than buffered.
func (s *Session) feedResourceUpdate(rec *timeline.Record) {
	if s.baseTime < 0 {
		metrics.ResourceUpdatesDropped.Inc()
		return
	}

	if d, ok := rec.Data.(timeline.ResourceUpdateData); ok && d.DidTimingChange {
		start := s.normalizeTime(d.StartTime)
		response := s.normalizeTime(d.ResponseReceivedTime)
		load := s.normalizeTime(d.LoadEventTime)
		domContent := s.normalizeTime(d.DomContentEventTime)
		end := s.normalizeTime(d.EndTime)

		// Later milestones overwrite the representative time, so the record
		// ends up stamped with the last milestone it knows about. Milestones
		// that normalize to zero or below are not yet known and must not
		// clobber anything.
		if start > 0 {
			d.StartTime = start
			rec.Time = start
		}
		if response > 0 {
			d.ResponseReceivedTime = response
			rec.Time = response
		}
		if load > 0 {
			d.LoadEventTime = load
			rec.Time = load
		}
		if domContent > 0 {
			d.DomContentEventTime = domContent
			rec.Time = domContent
		}
		if end > 0 {
			d.EndTime = end
			rec.Time = end
		}
		rec.Data = d
	}

	// An update with no usable milestone is still forwarded; it is stamped
	// at the session epoch.
	if math.IsNaN(rec.Time) {
		rec.Time = 0
	}
	s.forward(rec)
}
