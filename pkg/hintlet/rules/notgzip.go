// Package rules contains the hintlet rule implementations.
package rules

import (
	"fmt"
	"strings"

	"github.com/pagetrace/pagetrace/pkg/hintlet"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// UncompressedResourceName is the fixed rule identifier used in hints.
const UncompressedResourceName = "Uncompressed Resource"

// DefaultMinUncompressedSize is the resource size below which compression
// overhead outweighs the saving.
const DefaultMinUncompressedSize = 150

// DefaultCompressibleTypes lists the text-based mime types worth
// compressing.
var DefaultCompressibleTypes = []string{
	"text/html",
	"text/plain",
	"text/css",
	"text/xml",
	"text/javascript",
	"application/javascript",
	"application/x-javascript",
	"application/json",
	"application/xml",
	"image/svg+xml",
}

// DefaultAcceptedEncodings lists the Content-Encoding values that count as
// compressed. Matching is case-sensitive against the header value.
var DefaultAcceptedEncodings = []string{"gzip", "bzip2"}

// UncompressedResourceOptions overrides the rule's configuration constants.
// Zero values fall back to the defaults.
type UncompressedResourceOptions struct {
	MinSize           int64
	CompressibleTypes []string
	AcceptedEncodings []string
}

// resourceState accumulates one resource's lifecycle between its send
// request and its finish record.
type resourceState struct {
	url          string
	mimeType     string
	encoding     string
	hasEncoding  bool
	totalBytes   int64
	responseTime float64
}

// UncompressedResource flags text resources that were delivered without
// gzip or bzip2 compression. State is keyed by resource identifier;
// identifiers are recycled across page loads, so the accumulator is reset on
// every send request and discarded at finish.
type UncompressedResource struct {
	minSize           int64
	compressibleTypes map[string]bool
	acceptedEncodings map[string]bool
	resources         map[int64]*resourceState
}

// NewUncompressedResource creates the rule with its default configuration.
func NewUncompressedResource() *UncompressedResource {
	return NewUncompressedResourceWithOptions(UncompressedResourceOptions{})
}

// NewUncompressedResourceWithOptions creates the rule with overrides applied.
func NewUncompressedResourceWithOptions(opts UncompressedResourceOptions) *UncompressedResource {
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinUncompressedSize
	}
	if len(opts.CompressibleTypes) == 0 {
		opts.CompressibleTypes = DefaultCompressibleTypes
	}
	if len(opts.AcceptedEncodings) == 0 {
		opts.AcceptedEncodings = DefaultAcceptedEncodings
	}

	r := &UncompressedResource{
		minSize:           opts.MinSize,
		compressibleTypes: make(map[string]bool, len(opts.CompressibleTypes)),
		acceptedEncodings: make(map[string]bool, len(opts.AcceptedEncodings)),
		resources:         make(map[int64]*resourceState),
	}
	for _, t := range opts.CompressibleTypes {
		r.compressibleTypes[t] = true
	}
	for _, e := range opts.AcceptedEncodings {
		r.acceptedEncodings[e] = true
	}
	return r
}

// Name returns the rule identifier.
func (r *UncompressedResource) Name() string {
	return UncompressedResourceName
}

// OnRecord correlates the records of each resource and emits a verdict when
// the resource finishes.
func (r *UncompressedResource) OnRecord(rec *timeline.Record) []hintlet.Hint {
	switch d := rec.Data.(type) {
	case timeline.SendRequestData:
		r.resources[d.Identifier] = &resourceState{url: d.URL}

	case timeline.ReceiveResponseData:
		if st := r.resources[d.Identifier]; st != nil {
			st.mimeType = d.MimeType
			st.responseTime = rec.Time
		}

	case timeline.NetworkResponseData:
		if st := r.resources[d.Identifier]; st != nil {
			if enc, ok := d.Response.Header("Content-Encoding"); ok {
				st.encoding = enc
				st.hasEncoding = true
			}
			if ct, ok := d.Response.Header("Content-Type"); ok {
				st.mimeType = ct
			}
		}

	case timeline.DataReceivedData:
		if st := r.resources[d.Identifier]; st != nil {
			st.totalBytes += d.DataLength
		}

	case timeline.FinishData:
		st := r.resources[d.Identifier]
		if st == nil {
			return nil
		}
		delete(r.resources, d.Identifier)
		return r.verdict(st, rec)
	}
	return nil
}

func (r *UncompressedResource) verdict(st *resourceState, finish *timeline.Record) []hintlet.Hint {
	if !r.compressibleTypes[baseMimeType(st.mimeType)] {
		return nil
	}
	if st.hasEncoding && r.acceptedEncodings[st.encoding] {
		return nil
	}
	if st.totalBytes < r.minSize {
		return nil
	}

	return []hintlet.Hint{{
		HintletRule: UncompressedResourceName,
		Timestamp:   st.responseTime,
		Description: fmt.Sprintf("URL %s was not compressed with gzip or bzip2", st.url),
		RefRecord:   finish.Sequence,
		Severity:    hintlet.SeverityCritical,
	}}
}

// baseMimeType strips media-type parameters such as "; charset=utf-8".
func baseMimeType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(mime)
}
