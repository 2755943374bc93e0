package cmd

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agritox/agritox/internal/config"
	errwrap "github.com/agritox/agritox/internal/errors"
	"github.com/agritox/agritox/internal/metrics"
	"github.com/agritox/agritox/internal/observability"
	"github.com/agritox/agritox/internal/server"
	"github.com/agritox/agritox/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// adminTokenEnv enables the admin signal endpoint when set.
const adminTokenEnv = config.EnvPrefix + "ADMIN_TOKEN"

// storeHealthChecker pings the cache database. A pipeline running without a
// store is degraded, not down.
type storeHealthChecker struct {
	p *pipeline
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.p == nil || s.p.store == nil {
		return errwrap.NewServiceUnavailableError("store not available; cache disabled")
	}
	if err := s.p.store.DB.PingContext(ctx); err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "store ping failed")
	}
	return nil
}

func sourcesHealthChecker(p *pipeline) handlers.CheckerFunc {
	return func(ctx context.Context) error {
		if len(p.orchestrator.Adapters) == 0 {
			return errwrap.NewConfigInvalidError("no data sources enabled")
		}
		return nil
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API with graceful shutdown support.

Endpoints:
  GET /api/v1/analyze?query=<name>          Safety summary as JSON
  GET /api/v1/export/markdown?query=<name>  Safety summary as Markdown
  GET /api/v1/sources/test                  Source reachability
  GET /health, /version, /metrics

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (validation only; restart to apply)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var overrides map[string]any
		if cmd.Flags().Changed("host") {
			overrides = setOverride(overrides, "server.host", serverHost)
		}
		if cmd.Flags().Changed("port") {
			overrides = setOverride(overrides, "server.port", serverPort)
		}
		cfg := loadConfig(ctx, overrides)

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, cfg.Logging.Profile)
		logger := observability.ServerLogger

		var registry *metrics.Registry
		if cfg.Metrics.Enabled {
			registry = metrics.Init()
		}

		p, err := buildPipeline(ctx, cfg, pipelineOptions{})
		if err != nil {
			logger.Error("Failed to build analysis pipeline", zap.Error(err))
			return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "pipeline initialization failed")
		}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("sources", len(p.orchestrator.Adapters)),
			zap.Bool("cache", p.store != nil && cfg.Cache.Enabled),
			zap.Bool("metrics", registry != nil))

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("store", storeHealthChecker{p: p})
		hm.RegisterChecker("sources", sourcesHealthChecker(p))

		srv := server.New(server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Analysis: &handlers.AnalysisHandlers{
				Analyzer: p.orchestrator,
				Probers:  p.probers,
				Timeout:  cfg.Server.AnalyzeTimeout,
			},
			Metrics:       registry,
			HealthEnabled: cfg.Health.Enabled,
			AdminToken:    strings.TrimSpace(os.Getenv(adminTokenEnv)),
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server, then store, then logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			p.Close()
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: validating configuration")

			reloaded, err := config.Load(ctx, overrides)
			if err != nil {
				logger.Error("Failed to reload config", zap.Error(err))
				return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
			}

			logger.Info("Configuration is valid; restart to apply changes",
				zap.String("log_level", reloaded.Logging.Level),
				zap.Int("port", reloaded.Server.Port))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
