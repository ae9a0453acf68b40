package rules

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// TestProperty_ByteAccumulation: however a resource's bytes are split into
// data-received chunks, the verdict depends only on their sum, and at most
// one hint is emitted per finish.
func TestProperty_ByteAccumulation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("verdict depends on the chunk sum only", prop.ForAll(
		func(chunks []int64) bool {
			rule := NewUncompressedResource()
			seq := int64(1)
			feed := func(kind timeline.Kind, data timeline.Payload) []hintlet.Hint {
				rec := timeline.NewRaw(kind, seq, 0, data)
				rec.Time = float64(seq)
				seq++
				return rule.OnRecord(rec)
			}

			feed(timeline.KindResourceSendRequest, timeline.SendRequestData{
				Identifier: 1, URL: "http://example.org/foo.html",
			})
			feed(timeline.KindResourceReceiveResponse, timeline.ReceiveResponseData{
				Identifier: 1, StatusCode: 200, MimeType: "text/html",
			})

			var total int64
			for _, c := range chunks {
				total += c
				feed(timeline.KindNetworkDataReceived, timeline.DataReceivedData{
					Identifier: 1, DataLength: c,
				})
			}

			hints := feed(timeline.KindResourceFinish, timeline.FinishData{Identifier: 1})

			if total >= DefaultMinUncompressedSize {
				return len(hints) == 1
			}
			return len(hints) == 0
		},
		gen.SliceOf(gen.Int64Range(0, 500)),
	))

	properties.TestingRun(t)
}
