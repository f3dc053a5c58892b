package packsync

import (
	"fmt"
	"time"

	"github.com/agentstation/packsync/internal/metrics"
	"github.com/agentstation/packsync/pkg/audit"
	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/reconcile"
	"github.com/agentstation/packsync/pkg/store"
)

// Result summarizes a completed run.
type Result struct {
	RunID  string
	Root   string
	DryRun bool

	// Records is the number of reference records processed.
	Records int
	// Skipped is the number of feed hits dropped for an unknown type.
	Skipped int
	// Matches is the number of (record, document) pairs reconciled.
	Matches int

	Changes     []reconcile.Change
	Diagnostics []diagnostics.Diagnostic
	// Coverage lists in-scope documents no record matched.
	Coverage []store.Location
	// Allowlist lists the documents excluded from coverage, with reasons.
	Allowlist []overrides.Allowed
	MultiHits []audit.MultiHit

	Store    store.Stats
	Duration time.Duration
	Metrics  *metrics.Metrics
}

// HasChanges reports whether any document was modified.
func (r *Result) HasChanges() bool {
	return len(r.Changes) > 0
}

// Changed returns the distinct modified documents, sorted.
func (r *Result) Changed() []store.Location {
	seen := make(map[store.Location]bool)
	var out []store.Location
	for _, c := range r.Changes {
		if !seen[c.Location] {
			seen[c.Location] = true
			out = append(out, c.Location)
		}
	}
	store.SortLocations(out)
	return out
}

// DiagnosticCounts returns the number of diagnostics per kind.
func (r *Result) DiagnosticCounts() map[diagnostics.Kind]int {
	var c diagnostics.Collector
	c.Merge(r.Diagnostics)
	return c.Counts()
}

// Summary returns a one-line summary of the run.
func (r *Result) Summary() string {
	verb := "persisted"
	n := r.Store.Persisted
	if r.DryRun {
		verb = "would persist"
		n = r.Store.Suppressed
	}
	return fmt.Sprintf("%d records, %d matches, %d changes, %s %d documents, %d diagnostics, %d coverage gaps",
		r.Records, r.Matches, len(r.Changes), verb, n, len(r.Diagnostics), len(r.Coverage))
}
