package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenomy/internal/api"
	"tokenomy/internal/auth"
	"tokenomy/internal/config"
	"tokenomy/internal/db"
	"tokenomy/internal/economy"
	"tokenomy/internal/events"
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

	authClient := auth.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	bus := events.NewBus()
	econSvc := economy.NewService(pool, logger, bus)

	// Audit tap: every committed balance change lands in the log stream.
	subID, changes := bus.Subscribe(256)
	defer bus.Unsubscribe(subID)
	go func() {
		for ev := range changes {
			logger.Info("balance change",
				"user_id", ev.UserID,
				"delta", ev.Delta,
				"new_balance", ev.NewBalance,
				"reason", ev.Reason,
			)
		}
	}()

	server := api.New(cfg, logger, authClient, econSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("tokenomy api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
