package hintlet

import (
	"log/slog"

	"github.com/pagetrace/pagetrace/pkg/metrics"
	"github.com/pagetrace/pagetrace/pkg/timeline"
)

// Rule is one hintlet analysis rule. Rules are long-lived across a
// monitoring session and own whatever per-resource state they need to
// correlate records; no other component touches that state.
type Rule interface {
	// Name returns the rule's fixed identifier, used in emitted hints.
	Name() string
	// OnRecord inspects one normalized record and returns any hints it
	// produces. Rules ignore record kinds they do not recognize.
	OnRecord(rec *timeline.Record) []Hint
}

// Engine owns the set of registered rules and fans every normalized record
// out to each of them exactly once, in registration order. Rule state is
// never reset between records.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine with no rules registered.
func NewEngine() *Engine {
	return &Engine{}
}

// Register appends a rule to the dispatch list.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in registration order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Dispatch delivers one record to every registered rule and returns the
// union of emitted hints in registration order. A panicking rule is
// recovered and skipped for this record; it cannot affect the others.
func (e *Engine) Dispatch(rec *timeline.Record) []Hint {
	var hints []Hint
	for _, rule := range e.rules {
		out := e.runRule(rule, rec)
		for _, h := range out {
			metrics.HintsEmitted.WithLabelValues(h.HintletRule).Inc()
		}
		hints = append(hints, out...)
	}
	return hints
}

func (e *Engine) runRule(rule Rule, rec *timeline.Record) (hints []Hint) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RulePanics.WithLabelValues(rule.Name()).Inc()
			slog.Error("hintlet rule panicked",
				"rule", rule.Name(),
				"record_type", rec.Type.String(),
				"sequence", rec.Sequence,
				"panic", r)
			hints = nil
		}
	}()
	return rule.OnRecord(rec)
}
