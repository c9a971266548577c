package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"empire/internal/city"
	"empire/internal/config"
	"empire/internal/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		logger.Error("load tuning", "err", err)
		os.Exit(1)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolSize{Max: cfg.DBMaxConns, Min: 1}, logger)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The worker has no feed subscribers to notify.
	svc := city.NewService(city.NewPGStore(pool), tuning, nil, logger)

	if cfg.RunOnce {
		if err := runMaintenance(ctx, svc, logger); err != nil {
			logger.Error("maintenance failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.Every)
	defer ticker.Stop()

	logger.Info("worker started", "every", cfg.Every.String())
	if err := runMaintenance(ctx, svc, logger); err != nil {
		logger.Error("maintenance failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := runMaintenance(ctx, svc, logger); err != nil {
				logger.Error("maintenance failed", "err", err)
			}
		}
	}
}

// runMaintenance makes sure today's and tomorrow's challenges exist and
// repairs city business counts that drifted from the membership table.
func runMaintenance(ctx context.Context, svc *city.Service, logger *slog.Logger) error {
	now := time.Now().UTC()
	for _, day := range []time.Time{now, now.Add(24 * time.Hour)} {
		date := day.Format(time.DateOnly)
		challenges, err := svc.EnsureChallenges(ctx, date)
		if err != nil {
			return err
		}
		logger.Info("challenges ready", "date", date, "count", len(challenges))
	}
	fixed, err := svc.ReconcileCities(ctx)
	if err != nil {
		return err
	}
	logger.Info("cities reconciled", "fixed", fixed)
	return nil
}
