package cmd

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/config"
	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/server/handlers"
)

var (
	cfgFile string
	verbose bool

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
	handlers.SetVersionInfo(version, commit, buildDate)
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Agrochemical toxicity and safety lookup",
	Long: `agritox resolves agrochemical product names to active ingredients, queries
PubChem, ECHA and EPA CompTox concurrently, and builds a safety summary with
GHS hazard codes, regulatory status and precautions.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/agritox/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	handlers.SetAppName(config.AppName)
}

// initConfig sets up the CLI logger and the config file location. Config is
// loaded per command so runtime overrides can be layered in.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)
	config.SetConfigFile(cfgFile)
	if cfgFile != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", cfgFile))
	}
}

// loadConfig loads configuration with runtime overrides and exits with a
// config error code when it is invalid.
func loadConfig(ctx context.Context, overrides map[string]any) *config.Config {
	if verbose {
		overrides = setOverride(overrides, "logging.level", "debug")
	}

	var (
		cfg *config.Config
		err error
	)
	if len(overrides) > 0 {
		cfg, err = config.Load(ctx, overrides)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	return cfg
}

// setOverride stores value under a dotted key as nested maps.
func setOverride(overrides map[string]any, key string, value any) map[string]any {
	if overrides == nil {
		overrides = map[string]any{}
	}
	parts := strings.Split(key, ".")
	node := overrides
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
	return overrides
}
