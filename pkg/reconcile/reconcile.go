// Package reconcile decides, for one reference record and one stored
// document, which fields to rewrite.
//
// Each record is reconciled with the RuleSet of its kind: the common rules
// (source, level, rarity, price, traits) followed by the type rules. A rule
// runs Extract, then the override registry, then Normalize, then Apply.
// Apply writes only when the stored value differs, so reconciling a
// document twice with the same record changes nothing the second time.
package reconcile

import (
	"context"
	"fmt"

	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/logging"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/store"
)

// Reconciler applies rule sets to documents.
type Reconciler struct {
	overrides *overrides.Registry
	only      map[string]bool
	skip      map[string]bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithOnly restricts reconciliation to the named fields.
func WithOnly(fields ...string) Option {
	return func(r *Reconciler) {
		if len(fields) == 0 {
			return
		}
		r.only = make(map[string]bool, len(fields))
		for _, f := range fields {
			r.only[f] = true
		}
	}
}

// WithSkip excludes the named fields from reconciliation.
func WithSkip(fields ...string) Option {
	return func(r *Reconciler) {
		for _, f := range fields {
			if r.skip == nil {
				r.skip = make(map[string]bool)
			}
			r.skip[f] = true
		}
	}
}

// New returns a Reconciler consulting reg. A nil registry disables
// overrides.
func New(reg *overrides.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{overrides: reg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) enabled(rule Rule) bool {
	if rule.Disabled || r.skip[rule.Field] {
		return false
	}
	return r.only == nil || r.only[rule.Field]
}

// Reconcile runs the record's rule set against doc. It stops at the first
// rule error; a LookupError means the record carries a value outside a
// closed table and the run should abort.
func (r *Reconciler) Reconcile(ctx context.Context, rec records.Record, doc *store.Document) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	rs := For(rec)
	in := &Input{Record: rec, Doc: doc, Overrides: r.overrides}
	out := &Outcome{Record: label(rec), Location: doc.Location(), Kind: rs.Kind}

	for _, rule := range rs.Rules {
		if !r.enabled(rule) {
			continue
		}
		if rule.Guard != nil && !rule.Guard(in) {
			continue
		}

		raw, ok := rule.Extract(in)
		if r.overrides != nil {
			if v, layer, found := r.overrides.LookupLayer(in.Key(), rule.Field); found {
				logger.Debug().
					Str("field", rule.Field).
					Stringer("layer", layer).
					Stringer("value", v).
					Msg("Override applied")
				raw, ok = v.Raw(), true
			}
		}
		if !ok {
			continue
		}

		want := raw
		if rule.Normalize != nil {
			var err error
			want, err = rule.Normalize(in, raw)
			if errors.Is(err, ErrSkip) {
				continue
			}
			if err != nil {
				var lookup *errors.LookupError
				if errors.As(err, &lookup) && lookup.Record == "" {
					lookup.Record = rec.ID
				}
				return nil, fmt.Errorf("%s %s: %w", doc.Location(), rule.Field, err)
			}
		}

		if rule.Check != nil {
			if d := rule.Check(in, rule.Path, want); d != nil {
				logger.Warn().Str("field", rule.Field).Msg(d.Message)
				out.Diagnostics = append(out.Diagnostics, *d)
			}
			continue
		}

		deltas, err := rule.Apply(doc, rule.Path, want)
		for _, d := range deltas {
			c := Change{
				Location: doc.Location(),
				Field:    rule.Field,
				Path:     d.Path.String(),
				Old:      d.Old,
				New:      d.New,
				Deleted:  d.Deleted,
			}
			logger.Debug().
				Str("field", c.Field).
				Str("path", c.Path).
				Interface("old", c.Old).
				Interface("new", c.New).
				Bool("deleted", c.Deleted).
				Msg("Field changed")
			out.Changes = append(out.Changes, c)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", doc.Location(), rule.Field, err)
		}
	}
	return out, nil
}

func label(rec records.Record) string {
	return string(rec.Type) + ": " + rec.Name
}
