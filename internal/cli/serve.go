package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schedule-service/internal/app"
	"schedule-service/internal/server"
	"schedule-service/internal/telemetry"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer d.Close()
	cfg := d.cfg

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Endpoint:    cfg.Otel.Endpoint,
		SampleRatio: cfg.Otel.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			d.logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &app.App{
		Resolver:    d.resolver,
		Logger:      d.logger,
		Debug:       cfg.App.Debug,
		ReadyChecks: d.ready,
	}
	router := app.NewRouter(a, app.RouterConfig{
		Prefix:            cfg.App.Prefix,
		CORSOrigins:       cfg.App.CORSOrigins,
		MaxRequestsPerMin: cfg.App.MaxRequestsPerMin,
		StaticTokens:      cfg.Auth.StaticTokens,
		JWTSecret:         cfg.Auth.JWTSecret,
		TrustedProxies:    cfg.App.TrustedProxies,
	})

	return server.Run(ctx, cfg.App.Addr(), router, d.logger)
}
