/*
Copyright © 2024 Jake Rogers <code@supportoss.org>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeTRogers/geoBuddy/logger"
	"github.com/JakeTRogers/geoBuddy/metrics"
	"github.com/JakeTRogers/geoBuddy/source"
	"github.com/JakeTRogers/geoBuddy/tree"
)

const (
	configName = ".geoBuddy"
	configType = "yaml"
	envPrefix  = "GEOBUDDY"

	sourceSQLite  = "sqlite"
	sourceGraphQL = "graphql"
)

var (
	v                          = viper.New()
	l                          = logger.GetLogger()
	replaceHyphenWithCamelCase = false
	sourceNames                = []string{sourceSQLite, sourceGraphQL}
)

// settings is the resolved configuration shared by every command.
type settings struct {
	source          string
	dbPath          string
	endpoint        string
	appID           string
	apiKey          string
	timeout         time.Duration
	policy          string
	pruneOnCollapse bool
	metricsAddr     string
	logFile         string
}

// settingsFromFlags reads the (already viper-bound) flags of cmd.
func settingsFromFlags(cmd *cobra.Command) (settings, error) {
	f := cmd.Flags()
	var s settings
	var err error
	get := func(name string) string {
		if err != nil {
			return ""
		}
		var val string
		val, err = f.GetString(name)
		return val
	}
	s.source = get("source")
	s.dbPath = get("db")
	s.endpoint = get("endpoint")
	s.appID = get("app-id")
	s.apiKey = get("api-key")
	s.policy = get("policy")
	s.metricsAddr = get("metrics-addr")
	s.logFile = get("log-file")
	if err != nil {
		return settings{}, err
	}
	if s.timeout, err = f.GetDuration("timeout"); err != nil {
		return settings{}, err
	}
	if s.pruneOnCollapse, err = f.GetBool("prune-on-collapse"); err != nil {
		return settings{}, err
	}
	if s.dbPath == "" {
		s.dbPath = filepath.Join(getConfigPath(), "geoBuddy.db")
	}
	return s, s.validate()
}

// validate rejects combinations that cannot produce a working data source.
func (s settings) validate() error {
	if !slices.Contains(sourceNames, s.source) {
		return fmt.Errorf("invalid source %q, expected one of %v", s.source, sourceNames)
	}
	if _, err := tree.PolicyByName(s.policy); err != nil {
		return err
	}
	if s.source == sourceGraphQL && s.endpoint == "" {
		return errors.New("the graphql source requires --endpoint")
	}
	if s.timeout <= 0 {
		return fmt.Errorf("invalid timeout %s, must be positive", s.timeout)
	}
	return nil
}

// getConfigPath returns the directory holding the config file.
func getConfigPath() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

// initializeConfig initializes the configuration for the root command.
// It sets up the configuration file path, reads the config file if it exists,
// creates a new config file if it doesn't exist, and binds command flags to environment variables.
func initializeConfig(cmd *cobra.Command) error {
	verboseCount, _ := cmd.Flags().GetCount("verbose")
	logger.SetLogLevel(verboseCount)
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	configPath := getConfigPath()
	l.Debug().Str("configPath", configPath).Send()
	v.AddConfigPath(configPath)

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Create config file if it doesn't exist
			if err := v.SafeWriteConfig(); err != nil {
				l.Error().Err(err).Send()
			} else {
				l.Info().Str("configFile", filepath.Join(configPath, configName+"."+configType)).Msg("New config file created:")
			}
		} else {
			// Config file was found but another error was produced
			l.Error().Str("viper", err.Error()).Send()
		}
	}

	// --endpoint binds to GEOBUDDY_ENDPOINT, --app-id to GEOBUDDY_APP_ID
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindFlags(cmd, v)

	return nil
}

// bindFlags applies the viper value of every flag the user did not set on
// the command line, so flags win over environment and config file.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name
		// viper compares case-insensitively, so camelCase keys only need the hyphens removed
		if replaceHyphenWithCamelCase {
			configName = strings.ReplaceAll(f.Name, "-", "")
		}

		l.Debug().Str("flag", f.Name).Str("configName", configName).Msg("Binding flag to viper config:")
		if !f.Changed && v.IsSet(configName) {
			val := v.Get(configName)
			if arr, ok := val.([]interface{}); ok {
				for _, v := range arr {
					if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v)); err != nil {
						l.Error().Str("viper", err.Error()).Send()
					}
				}
			} else {
				if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
					l.Error().Str("viper", err.Error()).Send()
				}
			}
		}
	})
}

// newSource opens the configured data source wrapped with fetch metrics.
// The returned close function releases the underlying connection.
func newSource(ctx context.Context, s settings, m *metrics.Metrics) (source.Source, func() error, error) {
	noop := func() error { return nil }
	switch s.source {
	case sourceGraphQL:
		g := source.NewGraphQLSource(s.endpoint, s.appID, s.apiKey, s.timeout)
		return source.NewInstrumented(g, m, nil), noop, nil
	default:
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create database directory: %w", err)
		}
		db, err := source.OpenSQLite(ctx, s.dbPath)
		if err != nil {
			return nil, noop, err
		}
		return source.NewInstrumented(db, m, nil), db.Close, nil
	}
}

// startMetricsServer serves reg on addr in the background. The returned
// function shuts the server down.
func startMetricsServer(addr string, reg *prometheus.Registry) func() {
	srv := metrics.NewServer(addr, reg, l)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			l.Error().Err(err).Msg("metrics server shutdown")
		}
	}
}

// addSettingsFlags registers the flags read by settingsFromFlags.
func addSettingsFlags(fs *pflag.FlagSet) {
	fs.StringP("source", "s", sourceSQLite, "``data source to load the hierarchy from: sqlite or graphql")
	fs.String("db", "", "``path of the SQLite database. Defaults to geoBuddy.db next to the config file.")
	fs.String("endpoint", "", "``GraphQL endpoint URL, required with --source graphql")
	fs.String("app-id", "", "``application id sent as X-Parse-Application-Id")
	fs.String("api-key", "", "``API key sent as X-Parse-REST-API-Key")
	fs.Duration("timeout", 10*time.Second, "``timeout for each request to the GraphQL endpoint")
	fs.StringP("policy", "p", tree.PolicyAccordion, "``expansion policy: accordion or collapse-root")
	fs.Bool("prune-on-collapse", false, "discard the loaded children of a node when it is collapsed")
	fs.String("metrics-addr", "", "``serve Prometheus metrics and /healthz on this address, e.g. :9090")
	fs.String("log-file", "", "``write logs to this file while the explorer is running")
}

// persistentPreRunE binds cobra and viper before any command runs.
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	return initializeConfig(cmd)
}

// runRoot launches the interactive explorer.
func runRoot(cmd *cobra.Command, args []string) error {
	for k, val := range v.AllSettings() {
		l.Debug().Str(k, fmt.Sprintf("%v", val)).Msg("viper:")
	}

	s, err := settingsFromFlags(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	if s.metricsAddr != "" {
		stop := startMetricsServer(s.metricsAddr, reg)
		defer stop()
	}

	ctx := commandContext(cmd)
	src, closeSource, err := newSource(ctx, s, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(); err != nil {
			l.Error().Err(err).Msg("closing data source")
		}
	}()

	return runExplorer(ctx, src, s, m)
}

// commandContext returns the context cobra attached to cmd, or Background
// when the command is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "geoBuddy",
	Version: "v0.1.0",
	Short:   "Browse the continent, country and city hierarchy in the terminal",
	Long: `geoBuddy is a terminal explorer for a three level geographic hierarchy: continents contain countries and
countries contain cities. Children are fetched lazily the first time a node is expanded, either from a local SQLite
database (seeded with a small built-in world on first use) or from a Parse-style GraphQL endpoint.

Expansion follows one of two policies:

  - accordion: opening a node closes its open siblings
  - collapse-root: like accordion, but closing a continent closes everything below it

Settings are saved in a configuration file and can also be given as GEOBUDDY_* environment variables:

  - Linux/Mac: $HOME/.config/.geoBuddy.yaml
  - Windows: %APPDATA%\.geoBuddy.yaml

Examples:

  # Explore the built-in world database:
  $ geoBuddy

  # Explore a remote GraphQL endpoint:
  $ geoBuddy --source graphql --endpoint https://parseapi.back4app.com/graphql --app-id <id> --api-key <key>

  # Collapse everything below a continent when it closes, and drop unloaded branches:
  $ geoBuddy --policy collapse-root --prune-on-collapse

  # Print the whole hierarchy down to countries:
  $ geoBuddy dump --depth 2

Learn More:
  To submit feature requests, bugs, or to check for new versions, visit https://github.com/JakeTRogers/geoBuddy`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: persistentPreRunE,
	RunE:              runRoot,
	SilenceUsage:      true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "geoBuddy %s\n" .Version}}`)
	rootCmd.PersistentFlags().CountP("verbose", "v", "``increase logging verbosity, 1=warn, 2=info, 3=debug, 4=trace")
	addSettingsFlags(rootCmd.PersistentFlags())

	completions := map[string][]string{
		"source": sourceNames,
		"policy": tree.PolicyNames,
	}
	for name, values := range completions {
		values := values
		err := rootCmd.RegisterFlagCompletionFunc(name, func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
		if err != nil {
			l.Error().Err(err).Send()
		}
	}

	rootCmd.AddCommand(NewDumpCmd(v), NewInitCmd(v))
}
