package app

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/packsync"
	"github.com/agentstation/packsync/internal/feed"
	"github.com/agentstation/packsync/internal/report"
	"github.com/agentstation/packsync/internal/transport"
	"github.com/agentstation/packsync/pkg/logging"
	"github.com/agentstation/packsync/pkg/reconcile"
)

// runSync reconciles the store and writes the requested reports.
func (a *App) runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	src, err := a.feedSource(ctx)
	if err != nil {
		return err
	}

	opts := []packsync.Option{
		packsync.WithRoot(a.config.Root),
		packsync.WithSource(src),
		packsync.WithOverrideFiles(a.config.Overrides...),
		packsync.WithScope(args...),
		packsync.WithDryRun(a.config.DryRun),
		packsync.WithTimeout(a.config.Timeout),
	}
	var rc []reconcile.Option
	if len(a.config.Only) > 0 {
		rc = append(rc, reconcile.WithOnly(a.config.Only...))
	}
	if len(a.config.Skip) > 0 {
		rc = append(rc, reconcile.WithSkip(a.config.Skip...))
	}
	if len(rc) > 0 {
		opts = append(opts, packsync.WithReconcileOptions(rc...))
	}

	res, err := packsync.Run(ctx, opts...)
	if err != nil {
		return err
	}

	if err := report.WriteSummary(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if a.config.Report != "" {
		if err := report.WriteMarkdownFile(a.config.Report, res); err != nil {
			return err
		}
		logger.Info().Str("file", a.config.Report).Msg("Wrote report")
	}
	if a.config.MetricsFile != "" {
		if err := res.Metrics.WriteFile(a.config.MetricsFile); err != nil {
			return err
		}
		logger.Info().Str("file", a.config.MetricsFile).Msg("Wrote metrics")
	}
	return nil
}

// feedSource returns where reference records come from: an injected
// source, a hits file, or the index behind a cache.
func (a *App) feedSource(ctx context.Context) (feed.Source, error) {
	if a.source != nil {
		return a.source, nil
	}
	if a.config.FeedFile != "" {
		return feed.FromFile(a.config.FeedFile)
	}
	auth, err := transport.ParseAuth(a.config.FeedAuth)
	if err != nil {
		return nil, err
	}
	cache, err := feed.OpenCache(ctx, a.config.Cache, a.config.Root)
	if err != nil {
		return nil, err
	}
	if c, ok := cache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return feed.NewClient(a.config.URL,
		feed.WithAuth(auth),
		feed.WithCache(cache),
		feed.WithForce(a.config.Force),
	), nil
}
