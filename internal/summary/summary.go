// Package summary accumulates per-label allow/block counts for a batch run.
package summary

import (
	"github.com/pennsieve/promptcheck/llm"
)

// Tally holds the counters of one label. Total always equals Allowed+Blocked;
// failed invocations are counted in Errors only.
type Tally struct {
	Label   string `json:"label"`
	Total   int    `json:"total"`
	Allowed int    `json:"allowed"`
	Blocked int    `json:"blocked"`
	Errors  int    `json:"errors"`
}

// Aggregator records labeled outcomes and keeps labels in first-seen order.
type Aggregator struct {
	order  []string
	tally  map[string]*Tally
	failed int
}

func NewAggregator() *Aggregator {
	return &Aggregator{tally: make(map[string]*Tally)}
}

// Record adds one outcome under label.
func (a *Aggregator) Record(label string, outcome llm.Outcome) {
	t, ok := a.tally[label]
	if !ok {
		t = &Tally{Label: label}
		a.tally[label] = t
		a.order = append(a.order, label)
	}
	switch outcome.Kind {
	case llm.OutcomeFailure:
		t.Errors++
		a.failed++
	case llm.OutcomeBlocked:
		t.Blocked++
		t.Total++
	default:
		t.Allowed++
		t.Total++
	}
}

// Tallies returns a copy of every label's counters in first-seen order.
func (a *Aggregator) Tallies() []Tally {
	out := make([]Tally, 0, len(a.order))
	for _, label := range a.order {
		out = append(out, *a.tally[label])
	}
	return out
}

// Lookup returns the counters for label.
func (a *Aggregator) Lookup(label string) (Tally, bool) {
	t, ok := a.tally[label]
	if !ok {
		return Tally{}, false
	}
	return *t, true
}

// Len returns the number of distinct labels.
func (a *Aggregator) Len() int { return len(a.order) }

// Failed returns the number of failed invocations across all labels.
func (a *Aggregator) Failed() int { return a.failed }
