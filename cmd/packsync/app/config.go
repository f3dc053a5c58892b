package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/errors"
)

// EnvPrefix prefixes every environment variable packsync reads.
const EnvPrefix = "PACKSYNC"

// Config holds the application configuration loaded from flags, the
// environment, .env files and the config file.
type Config struct {
	// Config file actually read, if any
	ConfigFile string

	// Logging
	Verbose   bool
	Quiet     bool
	LogLevel  string
	LogFormat string
	LogOutput string

	// Store
	Root      string
	Overrides []string
	DryRun    bool
	Timeout   time.Duration
	Only      []string
	Skip      []string

	// Reference feed
	URL      string
	Force    bool
	Cache    string
	FeedFile string
	// FeedAuth is a credential spec, see transport.ParseAuth
	FeedAuth string

	// Outputs
	Report      string
	MetricsFile string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags bound to v
//  2. PACKSYNC_* environment variables (LOG_LEVEL and LOG_FORMAT also
//     unprefixed)
//  3. .env and .env.local
//  4. Config file (--config, or .packsync.yaml in the working directory or
//     home directory)
//  5. Defaults
func LoadConfig(v *viper.Viper) (*Config, error) {
	loadEnvFiles()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("log-level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log-format", EnvPrefix+"_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log-output", EnvPrefix+"_LOG_OUTPUT", "LOG_OUTPUT")

	v.SetDefault("root", ".")
	v.SetDefault("url", constants.DefaultFeedURL)
	v.SetDefault("timeout", constants.CommandTimeout)
	v.SetDefault("log-format", "auto")
	v.SetDefault("log-output", "stderr")

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".packsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	return &Config{
		ConfigFile: v.ConfigFileUsed(),

		Verbose:   v.GetBool("verbose"),
		Quiet:     v.GetBool("quiet"),
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
		LogOutput: v.GetString("log-output"),

		Root:      v.GetString("root"),
		Overrides: v.GetStringSlice("overrides"),
		DryRun:    v.GetBool("dry-run"),
		Timeout:   v.GetDuration("timeout"),
		Only:      v.GetStringSlice("only"),
		Skip:      v.GetStringSlice("skip"),

		URL:      v.GetString("url"),
		Force:    v.GetBool("force"),
		Cache:    v.GetString("cache"),
		FeedFile: v.GetString("feed-file"),
		FeedAuth: v.GetString("feed-auth"),

		Report:      v.GetString("report"),
		MetricsFile: v.GetString("metrics-file"),
	}, nil
}

// bindFlags makes every flag of fs a viper key, so that a flag set on the
// command line wins over the environment and the config file.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return errors.NewConfigError("flags", "cannot bind flags", err)
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
