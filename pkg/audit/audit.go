// Package audit computes end-of-run coverage: which in-scope documents no
// reference record ever matched.
package audit

import (
	"sort"

	"github.com/agentstation/packsync/pkg/store"
)

// Audit returns universe − matched − allow, sorted by (collection, filename).
func Audit(universe []store.Location, matched, allow map[store.Location]bool) []store.Location {
	missed := make([]store.Location, 0)
	seen := make(map[store.Location]bool, len(universe))
	for _, loc := range universe {
		if matched[loc] || allow[loc] || seen[loc] {
			continue
		}
		seen[loc] = true
		missed = append(missed, loc)
	}
	store.SortLocations(missed)
	return missed
}

// Tracker records which documents records matched during a run.
type Tracker struct {
	hits map[store.Location][]string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{hits: make(map[store.Location][]string)}
}

// Mark records that the named record matched loc.
func (t *Tracker) Mark(loc store.Location, record string) {
	t.hits[loc] = append(t.hits[loc], record)
}

// Matched returns the set of matched locations.
func (t *Tracker) Matched() map[store.Location]bool {
	out := make(map[store.Location]bool, len(t.hits))
	for loc := range t.hits {
		out[loc] = true
	}
	return out
}

// Len returns the number of distinct matched locations.
func (t *Tracker) Len() int {
	return len(t.hits)
}

// MultiHit is a document matched by more than one record.
type MultiHit struct {
	Location store.Location
	Records  []string
}

// MultiHits lists documents matched by more than one record, sorted by
// location. Such matches are legal; the list only surfaces them.
func (t *Tracker) MultiHits() []MultiHit {
	var out []MultiHit
	for loc, recs := range t.hits {
		if len(recs) > 1 {
			out = append(out, MultiHit{Location: loc, Records: append([]string(nil), recs...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Less(out[j].Location) })
	return out
}
