package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"empire/internal/api"
	"empire/internal/auth"
	"empire/internal/city"
	"empire/internal/config"
	"empire/internal/db"
	"empire/internal/feed"
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
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		logger.Error("load tuning", "err", err)
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolSize{Max: cfg.DBMaxConns}, logger)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	}

	broker := feed.NewBroker(logger, 32)
	defer broker.Close()
	citySvc := city.NewService(city.NewPGStore(pool), tuning, broker, logger)
	if _, err := citySvc.DailyChallenges(ctx); err != nil {
		logger.Warn("daily challenges not ready", "err", err)
	}

	authClient := auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	server := api.New(cfg, logger, authClient, citySvc, broker)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		// Feed sockets are hijacked, so Shutdown does not wait on them.
		broker.Close()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("empire api listening", "addr", cfg.Addr, "max_players", tuning.MaxPlayers)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
