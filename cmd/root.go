package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamusis/tooldeck/internal/config"
)

var (
	flagVerbose  bool
	flagSet      []string
	flagRegistry string
)

// logger traces library activity at the configured log_level.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:          "tooldeck",
	Short:        "tooldeck — find, inspect and resolve build tools and SDKs",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `tooldeck keeps a searchable catalog of artifact metadata (compilers, SDKs,
libraries) and works out which configuration of an artifact applies to this
host and what it transitively requires.

Registries are directories of metadata documents listed in
~/.tooldeck/tooldeck.yaml.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		l, err := newLogger(configuredLogLevel(), flagVerbose)
		if err != nil {
			printWarn("", fmt.Sprintf("cannot create logger: %v", err))
			return nil
		}
		logger = l
		return nil
	},
}

// configuredLogLevel returns log_level from tooldeck.yaml, or "" when the
// config cannot be loaded (for example before 'tooldeck init').
func configuredLogLevel() string {
	cfg, err := config.Load()
	if err != nil {
		return ""
	}
	return cfg.LogLevel
}

// newLogger builds a development logger at level. --verbose forces debug;
// an empty level means "error".
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	switch {
	case verbose:
		level = "debug"
	case level == "":
		level = "error"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = lvl
	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log registry and resolver activity to stderr at debug level")
	rootCmd.PersistentFlags().StringArrayVar(&flagSet, "set", nil, "Override a host feature (key=value, key, or key= to remove); repeatable")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", "", "Only use the named registry")
}

// Execute is called by main.go.
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
