// Package diagnostics collects the non-fatal findings of a reconciliation
// run. Diagnostics are logged and reported; they never stop a run and are
// never persisted.
package diagnostics

import (
	"fmt"
	"strings"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// MatchGap: a record of a must-match type resolved to no stored document.
	MatchGap Kind = "match_gap"
	// CoverageGap: an in-scope document was never matched by any record.
	CoverageGap Kind = "coverage_gap"
	// AmbiguousDomain: feed and store disagree in a way that cannot be
	// corrected automatically, e.g. deity domain lists.
	AmbiguousDomain Kind = "ambiguous_domain"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{MatchGap, AmbiguousDomain, CoverageGap}

// Diagnostic is one finding.
type Diagnostic struct {
	Kind Kind
	// Record is the feed record involved, "<type>: <name>", if any.
	Record string
	// Location is the stored document involved, if any.
	Location string
	Message  string
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Location != "" {
		prefix = append(prefix, d.Location)
	}
	if d.Record != "" {
		prefix = append(prefix, d.Record)
	}
	msg := fmt.Sprintf("[%s] %s", d.Kind, d.Message)
	if len(prefix) > 0 {
		return strings.Join(prefix, ":") + ": " + msg
	}
	return msg
}

// Collector accumulates diagnostics in the order they are reported.
type Collector struct {
	items []Diagnostic
}

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	c.items = append(c.items, d)
}

// Merge appends every diagnostic of ds.
func (c *Collector) Merge(ds []Diagnostic) {
	c.items = append(c.items, ds...)
}

// All returns every diagnostic.
func (c *Collector) All() []Diagnostic {
	return append([]Diagnostic(nil), c.items...)
}

// ByKind returns the diagnostics of one kind.
func (c *Collector) ByKind(k Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.items {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// Counts returns the number of diagnostics per kind.
func (c *Collector) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, d := range c.items {
		counts[d.Kind]++
	}
	return counts
}

// Len returns the number of diagnostics.
func (c *Collector) Len() int {
	return len(c.items)
}
