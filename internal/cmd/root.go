// Package cmd implements the swapi-proxy command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/swapi-gateway/pkg/config"
	"github.com/Sternrassler/swapi-gateway/pkg/logging"
)

var (
	cfgFile string
	verbose bool

	// settings carries defaults, environment bindings and bound flags.
	settings = config.New()

	// appConfig is loaded before any subcommand runs.
	appConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "swapi-proxy",
		Short: "Caching, rate-limited gateway for the Star Wars API",
		Long: `swapi-proxy fronts the public Star Wars API with a response cache,
an outbound rate limiter and retries, and answers searchable, sortable
queries over whole collections.

Configuration is read from the environment (SWAPI_BASE_URL, CACHE_TTL_SECONDS,
REDIS_URL, API_KEY, ...) and optionally from a config file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or .env)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	root.PersistentFlags().String("redis-url", "", "shared Redis cache, e.g. redis://localhost:6379/0 (env REDIS_URL)")
	_ = settings.BindPFlag(config.KeyRedisURL, root.PersistentFlags().Lookup("redis-url"))

	root.AddCommand(newServeCmd(), newQueryCmd(), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitWithError prints err and exits with status 1.
func ExitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := readConfig(settings, cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = logging.LevelDebug
	}

	logCfg := cfg.LoggingSetup()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	appConfig = cfg
	return nil
}

func readConfig(v *viper.Viper, file string) (*config.Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "swapi-proxy %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
			return err
		},
	}
}
