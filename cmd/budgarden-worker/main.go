package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgarden/internal/config"
	"budgarden/internal/db"
	"budgarden/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := game.NewService(pool, logger)

	if cfg.WorkerRunOnce {
		pruned, err := svc.PruneIdempotencyKeys(ctx, cfg.IdempotencyTTL)
		if err != nil {
			logger.Error("prune failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "pruned", pruned)
		return
	}

	ticker := time.NewTicker(cfg.PruneEvery)
	defer ticker.Stop()

	logger.Info("worker started", "prune_every", cfg.PruneEvery.String(), "idempotency_ttl", cfg.IdempotencyTTL.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			pruned, err := svc.PruneIdempotencyKeys(ctx, cfg.IdempotencyTTL)
			if err != nil {
				logger.Error("prune failed", "err", err)
				continue
			}
			logger.Info("idempotency keys pruned", "pruned", pruned)
		}
	}
}
