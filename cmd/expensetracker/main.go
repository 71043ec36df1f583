package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/cors"
	"expensetracker/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "expensetracker:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignored when absent)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig("expensetracker", os.Args[1:])
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, os.Stdout)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	opts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithPublicDir(cfg.PublicDir),
		apphttp.WithAllowedOrigins(cors.ParseOrigins(cfg.CORSAllowedOrigin)...),
		apphttp.WithRateLimit(cfg.RateLimitPerMin),
	}
	if cfg.MetricsEnabled {
		tel, err := telemetry.New("expensetracker")
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer tel.Shutdown(context.Background())
		opts = append(opts, apphttp.WithTelemetry(tel))
	}
	srv := apphttp.NewServer(cfg.Addr(), result.Service, opts...)

	logger.Info("Starting expense tracker",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"public_dir", cfg.PublicDir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server",
			applog.FieldOperation, applog.OpShutdown,
			"timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
