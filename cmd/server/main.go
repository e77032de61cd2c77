package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"keygate/internal/platform/config"
	"keygate/internal/platform/httpserver"
	"keygate/internal/platform/logger"
	"keygate/internal/platform/metrics"
	httptransport "keygate/internal/transport/http"
)

// main wires dependencies and runs the HTTP server and the retention
// scheduler until SIGINT or SIGTERM. Pending index writes are drained on exit.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "keygate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using the development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	app, err := build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer app.close(log)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Resolver:          app.resolver,
		Indexer:           app.queue,
		Logger:            log,
		Metrics:           metrics.New(reg),
		Registry:          reg,
		Checks:            app.checks,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		AuthEventsIndex:   cfg.Search.AuthEventsIndex,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout, log)
	})
	if app.retention != nil {
		g.Go(func() error {
			return app.retention.Run(gctx)
		})
	}

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if qerr := app.queue.Close(drainCtx); qerr != nil {
		log.Warn("index queue not fully drained", "error", qerr)
	}
	if app.failureSink != nil {
		if kerr := app.failureSink.Close(drainCtx); kerr != nil {
			log.Warn("failed to flush index failure events", "error", kerr)
		}
	}
	log.Info("keygate stopped")
	return err
}
