package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

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

	svc := economy.NewService(pool, logger, events.NewBus())

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("TOKENOMY_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if _, err := svc.RecordSnapshot(ctx); err != nil {
			logger.Error("snapshot failed", "err", err)
			os.Exit(1)
		}
		if err := resolveDraw(ctx, svc, logger); err != nil {
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	snapshots := time.NewTicker(cfg.SnapshotEvery)
	defer snapshots.Stop()
	draws := time.NewTimer(untilNextDraw(time.Now().UTC(), cfg.PotDrawHourUTC))
	defer draws.Stop()

	logger.Info("worker started",
		"snapshot_every", cfg.SnapshotEvery.String(),
		"pot_draw_hour_utc", cfg.PotDrawHourUTC,
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-snapshots.C:
			point, err := svc.RecordSnapshot(ctx)
			if err != nil {
				logger.Error("snapshot failed", "err", err)
				continue
			}
			logger.Info("snapshot recorded",
				"bucket", point.Bucket,
				"token_value", point.TokenValue,
				"circulation", point.TokensInCirculation,
			)
		case <-draws.C:
			_ = resolveDraw(ctx, svc, logger)
			draws.Reset(untilNextDraw(time.Now().UTC(), cfg.PotDrawHourUTC))
		}
	}
}

func resolveDraw(ctx context.Context, svc *economy.Service, logger *slog.Logger) error {
	result, err := svc.ResolveDraw(ctx)
	if errors.Is(err, economy.ErrPotEmpty) {
		logger.Info("pot draw skipped, no entrants")
		return nil
	}
	if err != nil {
		logger.Error("pot draw failed", "err", err)
		return err
	}
	logger.Info("pot draw resolved",
		"winner", result.WinnerUserID,
		"tokens", result.Tokens,
		"entrants", result.Entrants,
	)
	return nil
}

// untilNextDraw returns the wait until the next daily draw hour, always in
// the future so a restart at the draw hour cannot double-fire.
func untilNextDraw(now time.Time, hourUTC int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
