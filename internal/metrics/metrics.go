// Package metrics counts what a reconciliation run did. The collectors live
// on a private registry so that a run can be written out as a node-exporter
// textfile without a metrics server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/packsync/pkg/errors"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	registry *prometheus.Registry

	Records      *prometheus.CounterVec
	Matches      *prometheus.CounterVec
	Changes      *prometheus.CounterVec
	Diagnostics  *prometheus.CounterVec
	Documents    *prometheus.GaugeVec
	CoverageGaps prometheus.Gauge
	RunDuration  prometheus.Gauge
}

// New creates a Metrics instance with every collector registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "packsync_records_total",
			Help: "Reference records read from the feed, by record type",
		}, []string{"type"}),
		Matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "packsync_matches_total",
			Help: "Record to document matches within scope, by collection",
		}, []string{"collection"}),
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "packsync_field_changes_total",
			Help: "Field rewrites applied to documents, by field",
		}, []string{"field"}),
		Diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "packsync_diagnostics_total",
			Help: "Non-fatal findings, by kind",
		}, []string{"kind"}),
		Documents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "packsync_documents",
			Help: "Documents handled by the store, by state (opened, persisted, suppressed)",
		}, []string{"state"}),
		CoverageGaps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "packsync_coverage_gaps",
			Help: "In-scope documents no record matched",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "packsync_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the duration of a run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveRun(start time.Time) {
	m.RunDuration.Set(time.Since(start).Seconds())
}

// WriteFile writes every metric to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
