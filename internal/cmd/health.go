package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/config"
	errwrap "github.com/agritox/agritox/internal/errors"
	"github.com/agritox/agritox/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		ctx := cmd.Context()
		cfg, err := config.Load(ctx)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration loaded")

		if !cfg.Sources.PubChem.Enabled && !cfg.Sources.ECHA.Enabled && !cfg.Sources.EPA.Enabled {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "No data sources enabled", errwrap.NewConfigInvalidError("no data sources enabled"))
			return
		}
		logger.Info("✅ Data sources configured")

		db, err := openStoreWith(ctx, cfg.Store)
		if err != nil {
			logger.Warn("⚠️  Store unavailable; analysis will run without cache", zap.Error(err))
		} else {
			_ = db.Close()
			logger.Info("✅ Store ready", zap.String("driver", cfg.Store.Driver))
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
