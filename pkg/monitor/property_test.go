package monitor

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// TestProperty_BaseTimeMinimality: for any set of resource starts buffered
// before the first eligible record, the established base time equals the
// minimum of all buffered start times and the trigger's start time.
func TestProperty_BaseTimeMinimality(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("base time is the minimum known start time", prop.ForAll(
		func(starts []float64, trigger float64) bool {
			s := NewSession(nil, nil, nil)

			min := trigger
			for i, st := range starts {
				s.Feed(willSend(int64(i+1), st, int64(i+1), "http://example.org/", false))
				if st < min {
					min = st
				}
			}
			s.Feed(response(int64(len(starts)+1), trigger, 1))

			base, ok := s.BaseTime()
			return ok && base == min*1000
		},
		gen.SliceOf(gen.Float64Range(1, 1e6)),
		gen.Float64Range(1, 1e6),
	))

	properties.TestingRun(t)
}

// TestProperty_OutputOrdering: output records are observed in non-decreasing
// normalized time, tie-broken by non-decreasing sequence.
func TestProperty_OutputOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized stream is ordered", prop.ForAll(
		func(deltas []float64) bool {
			sink := NewMemorySink()
			s := NewSession(nil, sink, nil)

			// Arrival order with non-decreasing capture times, the normal
			// case for a live monitoring session.
			base := 100.0
			tm := base
			for i, d := range deltas {
				tm += d
				kind := timeline.KindResourceWillSend
				var data timeline.Payload = timeline.WillSendData{
					Identifier:     int64(i + 1),
					URL:            "http://example.org/",
					IsMainResource: i%3 == 0,
				}
				if i%2 == 1 {
					kind = timeline.KindResourceFinish
					data = timeline.FinishData{Identifier: int64(i)}
				}
				s.Feed(timeline.NewRaw(kind, int64(i+1), tm, data))
			}
			s.Feed(finish(int64(len(deltas)+1), tm+1, 999))

			recs := sink.Records()
			for i := 1; i < len(recs); i++ {
				if recs[i].Time < recs[i-1].Time {
					return false
				}
				if recs[i].Time == recs[i-1].Time && recs[i].Sequence < recs[i-1].Sequence {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 5)),
	))

	properties.TestingRun(t)
}
