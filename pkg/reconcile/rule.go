package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/store"
)

// ErrSkip is returned by a Normalize stage to leave the field untouched for
// this record.
var ErrSkip = errors.New("skip rule")

// Input is what a rule stage sees for one (record, document) pair.
type Input struct {
	Record    records.Record
	Doc       *store.Document
	Overrides *overrides.Registry
}

// Key returns the override key for the pair.
func (in *Input) Key() overrides.Key {
	k := overrides.Key{Type: in.Record.Type, ID: in.Record.ID, Name: in.Record.Name}
	if in.Doc != nil {
		k.Location = in.Doc.Location()
	}
	return k
}

// Delta is one mutation made by an Applier.
type Delta struct {
	Path    store.Path
	Old     any
	New     any
	Deleted bool
}

// Applier compares want with the document at path and writes when they
// differ. It returns the mutations it made.
type Applier func(doc *store.Document, path store.Path, want any) ([]Delta, error)

// Checker inspects the document without writing and reports a finding.
type Checker func(in *Input, path store.Path, want any) *diagnostics.Diagnostic

// Rule reconciles one field: Extract pulls the raw feed value, an override
// for Field replaces it, Normalize maps it to the store vocabulary and Apply
// compares and writes.
type Rule struct {
	// Field names the rule in overrides and change reports.
	Field string
	// Path is the document location the rule owns.
	Path store.Path
	// Guard, if set, must hold for the rule to run.
	Guard func(in *Input) bool
	// Extract returns the raw value and whether the feed has one.
	Extract func(in *Input) (any, bool)
	// Normalize, if set, maps a raw value to the stored form.
	Normalize func(in *Input, raw any) (any, error)
	// Apply writes; Check only inspects. Exactly one is set unless the rule
	// is disabled.
	Apply Applier
	Check Checker
	// Disabled rules are listed but never run.
	Disabled bool
}

// PathExists guards a rule on a document path being present.
func PathExists(p store.Path) func(*Input) bool {
	return func(in *Input) bool { return in.Doc.Has(p) }
}

// Field extracts a raw record field. With a non-nil def a missing field
// reads as def; otherwise the rule is skipped.
func Field(name string, def any) func(*Input) (any, bool) {
	return func(in *Input) (any, bool) {
		if v := in.Record.Value(name); v != nil {
			return v, true
		}
		return def, def != nil
	}
}

// Exact writes want unless the stored value is equal. Numbers compare
// numerically.
func Exact(doc *store.Document, path store.Path, want any) ([]Delta, error) {
	cur, ok := doc.Get(path)
	if ok && scalarEqual(cur, want) {
		return nil, nil
	}
	if err := doc.Set(path, want); err != nil {
		return nil, err
	}
	return []Delta{{Path: path, Old: cur, New: want}}, nil
}

// FoldEqual is Exact with case-insensitive string comparison. A missing
// stored value reads as the empty string.
func FoldEqual(doc *store.Document, path store.Path, want any) ([]Delta, error) {
	cur, _ := doc.Get(path)
	cs, _ := cur.(string)
	ws, _ := want.(string)
	if strings.EqualFold(cs, ws) {
		return nil, nil
	}
	if err := doc.Set(path, want); err != nil {
		return nil, err
	}
	return []Delta{{Path: path, Old: cur, New: want}}, nil
}

// SetEqual writes the list want unless the stored list holds the same
// elements in any order. A missing stored list reads as empty.
func SetEqual(doc *store.Document, path store.Path, want any) ([]Delta, error) {
	cur, _ := doc.Get(path)
	wl := toList(want)
	if sameSet(toList(cur), wl) {
		return nil, nil
	}
	if err := doc.Set(path, wl); err != nil {
		return nil, err
	}
	return []Delta{{Path: path, Old: cur, New: wl}}, nil
}

// KeepIfMember treats want as a candidate list. The stored value is kept
// when it is one of the candidates; otherwise the first candidate is
// written. With no candidates, nullIfEmpty writes null and otherwise the
// field is left alone.
func KeepIfMember(nullIfEmpty bool) Applier {
	return func(doc *store.Document, path store.Path, want any) ([]Delta, error) {
		cur, _ := doc.Get(path)
		candidates := toList(want)
		for _, c := range candidates {
			if scalarEqual(cur, c) {
				return nil, nil
			}
		}
		var next any
		switch {
		case len(candidates) > 0:
			next = candidates[0]
		case nullIfEmpty:
			if cur == nil && doc.Has(path) {
				return nil, nil
			}
		default:
			return nil, nil
		}
		if err := doc.Set(path, next); err != nil {
			return nil, err
		}
		return []Delta{{Path: path, Old: cur, New: next}}, nil
	}
}

// Breakdown treats want as a map of sub-keys to values below path. Listed
// keys are set when they differ; keys not in want are deleted.
func Breakdown(keys []string) Applier {
	return func(doc *store.Document, path store.Path, want any) ([]Delta, error) {
		wm, _ := want.(map[string]any)
		var deltas []Delta
		for _, k := range keys {
			p := path.Child(k)
			cur, has := doc.Get(p)
			w, wanted := wm[k]
			switch {
			case !wanted && has:
				doc.Delete(p)
				deltas = append(deltas, Delta{Path: p, Old: cur, Deleted: true})
			case wanted && (!has || !scalarEqual(cur, w)):
				if err := doc.Set(p, w); err != nil {
					return deltas, err
				}
				deltas = append(deltas, Delta{Path: p, Old: cur, New: w})
			}
		}
		return deltas, nil
	}
}

// Flags treats want as a map of sub-keys to booleans below path and writes
// each one that differs. Keys missing from want read as false.
func Flags(keys []string) Applier {
	return func(doc *store.Document, path store.Path, want any) ([]Delta, error) {
		wm, _ := want.(map[string]any)
		var deltas []Delta
		for _, k := range keys {
			p := path.Child(k)
			w, _ := wm[k].(bool)
			cur, has := doc.Get(p)
			if b, ok := cur.(bool); has && ok && b == w {
				continue
			}
			if err := doc.Set(p, w); err != nil {
				return deltas, err
			}
			deltas = append(deltas, Delta{Path: p, Old: cur, New: w})
		}
		return deltas, nil
	}
}

// toList reads a raw list value. nil is empty and a bare scalar is a one
// element list.
func toList(v any) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}

// toStrings reads a raw list of strings, dropping anything else.
func toStrings(v any) []string {
	list := toList(v)
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func sameSet(a, b []any) bool {
	return setKeys(a) == setKeys(b)
}

func setKeys(list []any) string {
	seen := make(map[string]bool, len(list))
	keys := make([]string, 0, len(list))
	for _, e := range list {
		k := scalarKey(e)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, "\x00")
}

func scalarKey(v any) string {
	if v == nil {
		return "null"
	}
	if f, ok := toFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if s, ok := v.(string); ok {
		return "s:" + s
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok || bok {
		return aok && bok && fa == fb
	}
	return scalarKey(a) == scalarKey(b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// toInt coerces a raw number or numeric string to an int.
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(math.Trunc(t)), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return int(math.Trunc(f)), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
