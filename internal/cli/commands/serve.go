// Package commands implements the chartline subcommands.
package commands

import (
	"context"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chartline-io/chartline/internal/config"
	"github.com/chartline-io/chartline/internal/engine"
	"github.com/chartline-io/chartline/internal/ui"
)

// ConfigFunc retrieves the loaded configuration from the command context.
type ConfigFunc func(ctx context.Context) *config.Config

// LoggerFunc retrieves the logger from the command context.
type LoggerFunc func(ctx context.Context) *slog.Logger

// NewServeCommand creates the serve command.
func NewServeCommand(getConfig ConfigFunc, getLogger LoggerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the lineage API server",
		Long: `Start an HTTP server exposing the lineage API.

Endpoints:
  POST /api/lineage         compute lineage for a SQL query
  POST /api/lineage/graph   build a positioned dependency graph
  GET  /healthz             liveness check`,
		Example: `  # Start on the default port
  chartline serve

  # Custom port with a persistent lineage cache
  chartline serve --port 3000 --state-path .chartline/cache.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			logger := getLogger(cmd.Context())

			eng, err := engine.New(engine.Config{
				StatePath: cfg.StatePath,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			srv := ui.NewServer(ui.Config{
				Engine: eng,
				Port:   cfg.Port,
				Logger: logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Serve(ctx)
		},
	}
}
