package hintlet

// Severity orders hints from informational to critical.
type Severity int

const (
	SeverityInfo     Severity = 1
	SeverityWarning  Severity = 2
	SeverityCritical Severity = 3
)

// Hint is a performance warning derived from the normalized record stream.
// Hints are append-only: once emitted they have no further lifecycle.
type Hint struct {
	// HintletRule is the fixed name of the rule that produced the hint.
	HintletRule string `json:"hintletRule"`
	// Timestamp is the session-relative time (ms) of the record the rule
	// chose as the moment the problem was observed.
	Timestamp float64 `json:"timestamp"`
	// Description is a human-readable message naming the offending resource.
	Description string `json:"description"`
	// RefRecord is the sequence number of the record that triggered the
	// hint. Replayed records keep their original sequence numbers, so
	// references are stable regardless of pre-base-time buffering.
	RefRecord int64 `json:"refRecord"`
	// Severity is the rule's fixed severity for this class of problem.
	Severity Severity `json:"severity"`
}
