// Package resolver maps reference records to the stored documents they
// describe.
//
// Resolution first consults the id layer of the override registry; pinned
// locations are used verbatim (patterns are expanded against the store) and
// nothing is derived. Otherwise a filename is derived from the record name
// and routed to one or more collections by record type. Only candidates that
// exist in the store count as matches.
package resolver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agentstation/packsync/internal/matcher"
	"github.com/agentstation/packsync/pkg/audit"
	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/store"
)

var (
	parenthetical = regexp.MustCompile(`(?s)\s*\(.*\)\s*`)
	punctuation   = regexp.MustCompile("[\n,'()+!?…]+")
	spaces        = regexp.MustCompile(` +`)
)

// DeriveFilename returns the base filename, without extension, for a record
// name. Backgrounds, ancestries and deities drop parenthetical qualifiers;
// every type then drops punctuation and joins words with hyphens.
func DeriveFilename(t records.Type, name string) string {
	filename := strings.ToLower(name)
	switch t {
	case records.TypeBackground, records.TypeAncestry, records.TypeDeity:
		filename = parenthetical.ReplaceAllString(filename, "")
	}
	filename = punctuation.ReplaceAllString(filename, "")
	return spaces.ReplaceAllString(filename, "-")
}

// skillSuffix turns a background skill tag into a filename suffix.
func skillSuffix(skill string) string {
	return strings.ReplaceAll(strings.ToLower(skill), " ", "-")
}

// Derive returns the candidate locations for a record name, without
// consulting overrides or the store.
func Derive(rec records.Record) []store.Location {
	base := DeriveFilename(rec.Type, rec.Name)
	file := func(collection, name string) store.Location {
		return store.Location{Collection: collection, Filename: name + constants.DocumentExt}
	}

	switch {
	case rec.Type == records.TypeAncestry:
		return []store.Location{file(store.Ancestries, base), file(store.Heritages, base)}
	case rec.Type == records.TypeBackground:
		locs := []store.Location{file(store.Backgrounds, base)}
		for _, skill := range distinct(rec.Strings("skill")) {
			locs = append(locs, file(store.Backgrounds, base+"-"+skillSuffix(skill)))
		}
		return locs
	case rec.Type == records.TypeDeity:
		return []store.Location{file(store.Deities, base)}
	case rec.Type == records.TypeFeat:
		return []store.Location{file(store.Feats, base)}
	case rec.Type == records.TypeHeritage:
		return []store.Location{file(store.Heritages, base)}
	case rec.Type.IsSpell():
		return []store.Location{file(store.Spells, base)}
	case rec.Type.IsItem():
		return []store.Location{file(store.Equipment, base)}
	}
	return nil
}

func distinct(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Locator is the part of the store the resolver needs.
type Locator interface {
	Exists(loc store.Location) bool
	Glob(collection, pattern string) ([]store.Location, error)
}

// Result is the outcome of resolving one record.
type Result struct {
	// Candidates are the locations considered, patterns unexpanded.
	Candidates []store.Location
	// Overridden is set when the candidates came from the id layer.
	Overridden bool
	// Existing are the candidates present in the store, in any scope.
	Existing []store.Location
	// Matches are the existing candidates within the caller's scope.
	Matches []store.Location
	// Gap is set when a must-match record resolved to no stored document.
	Gap *diagnostics.Diagnostic
}

// Resolver resolves records against one store.
type Resolver struct {
	locator   Locator
	overrides *overrides.Registry
	tracker   *audit.Tracker
}

// New returns a resolver. tracker may be nil when coverage is not needed.
func New(locator Locator, reg *overrides.Registry, tracker *audit.Tracker) *Resolver {
	return &Resolver{locator: locator, overrides: reg, tracker: tracker}
}

// Candidates returns the locations a record maps to before existence checks.
func (r *Resolver) Candidates(rec records.Record) ([]store.Location, bool) {
	if r.overrides != nil {
		if locs, ok := r.overrides.Locations(rec.ID); ok {
			return locs, true
		}
	}
	return Derive(rec), false
}

// Resolve returns the stored documents rec matches. Every existing candidate
// is marked on the tracker regardless of scope.
func (r *Resolver) Resolve(rec records.Record, scope store.Scope) (*Result, error) {
	candidates, overridden := r.Candidates(rec)
	res := &Result{Candidates: candidates, Overridden: overridden}

	seen := make(map[store.Location]bool)
	for _, c := range candidates {
		existing, err := r.expand(c, overridden)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", rec, err)
		}
		for _, loc := range existing {
			if seen[loc] {
				continue
			}
			seen[loc] = true
			res.Existing = append(res.Existing, loc)
			if r.tracker != nil {
				r.tracker.Mark(loc, label(rec))
			}
			if scope.Contains(loc) {
				res.Matches = append(res.Matches, loc)
			}
		}
	}

	if len(res.Existing) == 0 && rec.Type.MustMatch() {
		res.Gap = &diagnostics.Diagnostic{
			Kind:    diagnostics.MatchGap,
			Record:  label(rec),
			Message: "No packs found",
		}
	}
	return res, nil
}

// expand returns the existing documents a candidate names. Only pinned
// override locations may be patterns.
func (r *Resolver) expand(c store.Location, pattern bool) ([]store.Location, error) {
	if pattern && matcher.IsPattern(c.Filename) {
		return r.locator.Glob(c.Collection, c.Filename)
	}
	if r.locator.Exists(c) {
		return []store.Location{c}, nil
	}
	return nil, nil
}

func label(rec records.Record) string {
	return string(rec.Type) + ": " + rec.Name
}
