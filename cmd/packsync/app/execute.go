package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/logging"
)

// Exit statuses. Diagnostics never change the exit status.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitStructural = 2
	ExitLookup     = 3
)

// Execute runs the packsync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.out)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "packsync [files...]",
		Short:   "Reconcile compendium packs against the reference index",
		Version: a.version,
		Long: `packsync corrects the JSON documents below <root>/packs/data using the
authoritative reference index.

Every reference record is matched to the documents it describes and the
fields that drifted are rewritten. Each modified document is written once,
at the end of the run. Files or directories given as arguments restrict the
documents the run may modify.`,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: a.setupCommand,
		RunE:              a.runSync,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default is ./.packsync.yaml or $HOME/.packsync.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.String("log-format", "", "log format: auto, console, json")
	pf.StringP("root", "p", "", "store root containing packs/data (default \".\")")
	pf.StringSlice("overrides", nil, "additional override files layered over the built-in data")

	f := rootCmd.Flags()
	f.StringP("url", "u", "", "reference index _search endpoint")
	f.BoolP("force", "f", false, "download the reference feed even if a cached copy exists")
	f.String("cache", "", "feed cache: a file path or a redis:// URL (default: file in the store root)")
	f.String("feed-file", "", "read reference hits from a JSON file instead of the index")
	f.String("feed-auth", "", "index credentials: apikey:<key>, bearer:<token> or basic:<user>:<pass>")
	f.Bool("dry-run", false, "reconcile and report without writing any document")
	f.Duration("timeout", 0, "abort the run after this long")
	f.StringSlice("only", nil, "reconcile only these fields")
	f.StringSlice("skip", nil, "do not reconcile these fields")
	f.String("report", "", "write a markdown report to this file")
	f.String("metrics-file", "", "write run metrics in Prometheus text format to this file")

	rootCmd.SetVersionTemplate("packsync {{.Version}}\n")

	rootCmd.AddCommand(a.NewFilenameCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
	return rootCmd
}

// setupCommand reloads the configuration with the parsed flags bound, so
// that flags take precedence, and rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(a.viper, cmd.Flags()); err != nil {
		return err
	}
	config, err := LoadConfig(a.viper)
	if err != nil {
		return err
	}
	a.config = config

	if !a.fixedLogger {
		logger := NewLogger(a.config)
		a.logger = &logger
	}
	logging.SetDefault(*a.logger)
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	if a.config.ConfigFile != "" {
		a.logger.Debug().Str("file", a.config.ConfigFile).Msg("Loaded config file")
	}
	return nil
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsStructural(err):
		return ExitStructural
	case errors.IsLookup(err):
		return ExitLookup
	default:
		return ExitFailure
	}
}

// ExitOnError prints err and exits with its status. It returns if err is
// nil.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("packsync: " + err.Error() + "\n")
		os.Exit(ExitCode(err))
	}
}
