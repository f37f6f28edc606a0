package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/walletcore/internal/config"
	"github.com/congo-pay/walletcore/internal/custody"
	"github.com/congo-pay/walletcore/internal/infra"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/ratelock"
	"github.com/congo-pay/walletcore/internal/reaper"
	"github.com/congo-pay/walletcore/internal/routes"
	"github.com/congo-pay/walletcore/internal/server"
	"github.com/congo-pay/walletcore/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("app", cfg.AppName, "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", "error", err)
		os.Exit(1)
	}
	defer backends.Close(logger)

	if backends.DB != nil && cfg.IsDevelopment() {
		if _, err := backends.DB.Exec(ctx, postgres.Schema); err != nil {
			logger.Error("apply schema", "error", err)
			os.Exit(1)
		}
	}

	core := custody.New(custody.Options{
		Store:           backends.Store,
		Locker:          backends.Locker,
		Logger:          logger,
		ConflictRetries: cfg.ConflictRetries,
		RateLocks:       ratelock.Config{DefaultTTL: cfg.RateLockDefaultTTL, MaxTTL: cfg.RateLockMaxTTL},
		Reaper:          reaper.Config{Interval: cfg.ReaperInterval, RetryBackoff: cfg.ReaperRetryBackoff},
	})

	deps := routes.Deps{
		Checks: []routes.Check{{Name: "store", Ping: core.Ping}},
		Reaper: core.Reaper.Status,
	}
	if backends.Cache != nil {
		deps.Checks = append(deps.Checks, routes.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return backends.Cache.Ping(ctx).Err() },
		})
	}
	srv := server.New(cfg, deps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return core.Reaper.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx, cfg.ShutdownPeriod) })

	logger.Info("walletd started")
	if err := g.Wait(); err != nil {
		logger.Error("walletd stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("walletd exited cleanly")
}
