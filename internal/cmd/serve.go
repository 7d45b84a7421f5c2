package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/swapi-gateway/internal/server"
	"github.com/Sternrassler/swapi-gateway/pkg/config"
	"github.com/Sternrassler/swapi-gateway/pkg/logging"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API with graceful shutdown support.

Every catalog route requires the X-API-Key header; /health and /metrics
are open. Ctrl+C (SIGINT) or SIGTERM drains in-flight requests before exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, appConfig)
		},
	}

	serveCmd.Flags().Int("port", 0, "listen port (env PORT, default 8080)")
	_ = settings.BindPFlag(config.KeyPort, serveCmd.Flags().Lookup("port"))

	return serveCmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger("serve")

	gw, err := buildGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing Redis failed")
		}
	}()

	srv := server.New(cfg.Addr(), server.Deps{
		Gateway:  gw.client,
		Resolver: gw.resolver,
		Engine:   gw.engine,
		APIKey:   cfg.Server.APIKey,
	})

	logger.Info().
		Str("version", versionInfo.Version).
		Str("upstream", cfg.SWAPI.BaseURL).
		Bool("redis", gw.redis != nil).
		Int("rate_limit_capacity", cfg.RateLimit.Capacity).
		Float64("rate_limit_refill", cfg.RateLimit.RefillPerSecond).
		Msg("Initializing server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	logger.Info().Msg("HTTP server stopped gracefully")
	return <-errCh
}
