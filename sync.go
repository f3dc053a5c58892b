// Package packsync reconciles a local store of compendium documents against
// an authoritative reference feed.
//
// A run reads every reference record, resolves the stored documents each
// one describes, rewrites the fields that drifted, persists each modified
// document once and finally reports which documents no record matched.
package packsync

import (
	"context"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/agentstation/packsync/internal/feed"
	"github.com/agentstation/packsync/internal/metrics"
	"github.com/agentstation/packsync/pkg/audit"
	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/logging"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/reconcile"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/resolver"
	"github.com/agentstation/packsync/pkg/store"
)

// Run performs one reconciliation run.
//
// A StructuralError is returned before any record is read when the store
// root is invalid. A LookupError, a document that cannot be read, or a
// canceled context aborts the run: documents modified so far in the run are
// dropped unwritten. Diagnostics never fail a run.
func Run(ctx context.Context, opts ...Option) (*Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	// Step 1: Parse options
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx = logging.WithRun(ctx, runID)
	logger := logging.FromContext(ctx)

	// Step 2: Open the store and resolve the caller's scope
	st, err := store.New(cfg.root, append([]store.Option{store.WithDryRun(cfg.dryRun)}, cfg.store...)...)
	if err != nil {
		return nil, err
	}
	scope, err := st.Scope(cfg.scope...)
	if err != nil {
		return nil, err
	}
	for _, p := range scope.Ignored {
		logger.Warn().Str("path", p).Msg("Ignoring path outside the store")
	}

	// Step 3: Load overrides
	reg := cfg.registry
	if reg == nil {
		if reg, err = overrides.Load(cfg.overrideFiles...); err != nil {
			return nil, err
		}
	}
	logger.Debug().Interface("overrides", reg.Stats()).Msg("Loaded overrides")

	m := cfg.metrics
	if m == nil {
		m = metrics.New()
	}

	// Step 4: Read the reference feed
	src := cfg.source
	if src == nil {
		src = feed.NewClient("", feed.WithCache(feed.NewFileCache(st.Root())))
	}
	recs, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Root:      st.Root(),
		DryRun:    cfg.dryRun,
		Allowlist: reg.Allowlist(),
		Metrics:   m,
	}
	if c, ok := src.(*feed.Client); ok {
		result.Skipped = c.Skipped
	}

	// Step 5: Resolve and reconcile every record
	tracker := audit.NewTracker()
	r := &runner{
		store:      st,
		scope:      scope,
		resolver:   resolver.New(st, reg, tracker),
		reconciler: reconcile.New(reg, cfg.reconcile...),
		metrics:    m,
		result:     result,
	}

	for _, rec := range recs {
		if err := r.process(ctx, rec); err != nil {
			st.Discard()
			if errors.IsCanceled(err) {
				logger.Warn().Err(err).Str(logging.RecordField, rec.ID).Msg("Run canceled, pending changes discarded")
			} else {
				logger.Error().Err(err).Str(logging.RecordField, rec.ID).Msg("Run aborted, pending changes discarded")
			}
			return nil, err
		}
	}

	// Step 6: Persist every modified document once
	if err := st.Flush(); err != nil {
		logging.FromContext(logging.WithOperation(ctx, "persist")).Error().Err(err).Msg("Persist failed")
		return nil, err
	}

	// Step 7: Coverage
	universe, err := st.Universe(scope)
	if err != nil {
		return nil, err
	}
	allow := make(map[store.Location]bool, len(result.Allowlist))
	for _, a := range result.Allowlist {
		allow[a.Location] = true
	}
	result.Coverage = audit.Audit(universe, tracker.Matched(), allow)
	auditLogger := logging.FromContext(logging.WithOperation(ctx, "audit"))
	for _, loc := range result.Coverage {
		d := diagnostics.Diagnostic{
			Kind:     diagnostics.CoverageGap,
			Location: loc.String(),
			Message:  "Not matched by any reference record",
		}
		r.diags.Add(d)
		auditLogger.Warn().Str(logging.LocationField, d.Location).Msg(d.Message)
	}

	result.MultiHits = tracker.MultiHits()
	for _, mh := range result.MultiHits {
		auditLogger.Debug().
			Str(logging.LocationField, mh.Location.String()).
			Strs("records", mh.Records).
			Msg("Document matched by several records")
	}

	result.Diagnostics = r.diags.All()
	result.Store = st.Stats()
	result.Duration = time.Since(start)
	record(m, result, start)

	logger.Info().
		Int("records", result.Records).
		Int("matches", result.Matches).
		Int("changes", len(result.Changes)).
		Int("persisted", result.Store.Persisted).
		Int("suppressed", result.Store.Suppressed).
		Int("diagnostics", len(result.Diagnostics)).
		Bool("dry_run", cfg.dryRun).
		Dur("duration", result.Duration).
		Msg("Run complete")
	return result, nil
}

// runner carries the per-run state shared by every record.
type runner struct {
	store      *store.Store
	scope      store.Scope
	resolver   *resolver.Resolver
	reconciler *reconcile.Reconciler
	metrics    *metrics.Metrics
	diags      diagnostics.Collector
	result     *Result
}

// process resolves one record and reconciles every document it matches.
func (r *runner) process(ctx context.Context, rec records.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = logging.WithRecord(ctx, rec.ID)
	logger := logging.FromContext(ctx)
	logger.Debug().Str("type", rec.Type.String()).Str("name", rec.Name).Msg("Parsed record")
	if e := logger.Trace(); e.Enabled() {
		e.Msg(spew.Sdump(rec))
	}
	r.result.Records++
	r.metrics.Records.WithLabelValues(rec.Type.String()).Inc()

	resolved, err := r.resolver.Resolve(rec, r.scope)
	if err != nil {
		return err
	}
	if resolved.Gap != nil {
		r.diags.Add(*resolved.Gap)
		logger.Warn().Str("name", rec.Name).Msg(resolved.Gap.Message)
	}

	for _, loc := range resolved.Matches {
		lctx := logging.WithLocation(ctx, loc.String())
		logging.FromContext(lctx).Debug().Bool("override", resolved.Overridden).Msg("Matched document")
		r.result.Matches++
		r.metrics.Matches.WithLabelValues(loc.Collection).Inc()

		doc, err := r.store.Open(loc)
		if err != nil {
			return err
		}
		out, err := r.reconciler.Reconcile(lctx, rec, doc)
		if err != nil {
			return err
		}
		r.diags.Merge(out.Diagnostics)
		r.result.Changes = append(r.result.Changes, out.Changes...)
		for _, c := range out.Changes {
			r.metrics.Changes.WithLabelValues(c.Field).Inc()
		}
	}
	return nil
}

// record copies the run totals onto m.
func record(m *metrics.Metrics, r *Result, start time.Time) {
	for kind, n := range r.DiagnosticCounts() {
		m.Diagnostics.WithLabelValues(string(kind)).Add(float64(n))
	}
	m.Documents.WithLabelValues("opened").Set(float64(r.Store.Opened))
	m.Documents.WithLabelValues("persisted").Set(float64(r.Store.Persisted))
	m.Documents.WithLabelValues("suppressed").Set(float64(r.Store.Suppressed))
	m.CoverageGaps.Set(float64(len(r.Coverage)))
	m.ObserveRun(start)
}
