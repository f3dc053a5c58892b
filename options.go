package packsync

import (
	"time"

	"github.com/agentstation/packsync/internal/feed"
	"github.com/agentstation/packsync/internal/metrics"
	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/reconcile"
	"github.com/agentstation/packsync/pkg/store"
)

// Option is a function that configures a run.
type Option func(*config) error

// config holds the resolved options of one run.
type config struct {
	root          string
	source        feed.Source
	registry      *overrides.Registry
	overrideFiles []string
	scope         []string
	dryRun        bool
	timeout       time.Duration
	reconcile     []reconcile.Option
	store         []store.Option
	metrics       *metrics.Metrics
}

func newConfig(opts ...Option) (*config, error) {
	c := &config{root: "."}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.timeout < 0 {
		return nil, &errors.ValidationError{
			Field:   "Timeout",
			Value:   c.timeout,
			Message: "timeout must be non-negative",
		}
	}
	return c, nil
}

// WithRoot sets the store root, the directory containing packs/data.
func WithRoot(root string) Option {
	return func(c *config) error {
		if root == "" {
			return errors.NewValidationError("root", root, "store root cannot be empty")
		}
		c.root = root
		return nil
	}
}

// WithSource sets where reference records come from. Without it the run
// downloads the public feed and caches it in the store root.
func WithSource(src feed.Source) Option {
	return func(c *config) error {
		c.source = src
		return nil
	}
}

// WithOverrides uses reg instead of loading the override data files.
func WithOverrides(reg *overrides.Registry) Option {
	return func(c *config) error {
		c.registry = reg
		return nil
	}
}

// WithOverrideFiles layers user override files over the embedded data.
// Ignored when WithOverrides is given.
func WithOverrideFiles(paths ...string) Option {
	return func(c *config) error {
		c.overrideFiles = append(c.overrideFiles, paths...)
		return nil
	}
}

// WithScope restricts the documents the run may modify to the given files
// and directories. Coverage is still computed over this scope only.
func WithScope(paths ...string) Option {
	return func(c *config) error {
		c.scope = append(c.scope, paths...)
		return nil
	}
}

// WithDryRun reconciles and reports without writing any document.
func WithDryRun(dryRun bool) Option {
	return func(c *config) error {
		c.dryRun = dryRun
		return nil
	}
}

// WithTimeout bounds the whole run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.timeout = d
		return nil
	}
}

// WithReconcileOptions passes options to the field reconciler.
func WithReconcileOptions(opts ...reconcile.Option) Option {
	return func(c *config) error {
		c.reconcile = append(c.reconcile, opts...)
		return nil
	}
}

// WithStoreOptions passes options to the target store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(c *config) error {
		c.store = append(c.store, opts...)
		return nil
	}
}

// WithMetrics records run metrics on m instead of a fresh instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}
