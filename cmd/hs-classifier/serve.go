package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/hs-classifier/internal/api"
)

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes classification over HTTP:

  POST /api/v1/classify   classify a product
  GET  /api/v1/regions    list supported regions
  GET  /api/v1/history    recent classifications
  GET  /api/v1/history/{id}  one saved classification
  GET  /health, /ready    liveness and readiness

Requests under /api/v1 require an API key when auth is enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if port > 0 {
				cfg.Server.Port = port
			}

			a, err := newApp(ctx, cfg, logger, "api")
			if err != nil {
				return err
			}
			defer a.Close()

			deps := api.Deps{
				Logger:         logger,
				Classifier:     a.service,
				Provider:       a.invoker.Provider(),
				Cache:          a.results,
				Auditor:        a.auditor,
				Auth:           cfg.Auth,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				RequestTimeout: cfg.Server.WriteTimeout,
			}
			storageDriver := "none"
			if a.store != nil {
				deps.History = a.store.History
				deps.Ready = a.store.Ping
				storageDriver = a.store.Driver()
			}

			srv := api.NewServer(cfg.Server, api.NewRouter(deps), logger)
			logger.Info().
				Str("addr", srv.Addr()).
				Str("storage", storageDriver).
				Str("provider", a.invoker.Provider()).
				Bool("auth", cfg.Auth.Enabled).
				Msg("Starting hs-classifier API")

			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}
