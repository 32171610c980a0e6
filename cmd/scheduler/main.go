package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/app"
	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/logger"
	"github.com/mysqft/leadcapture/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format, "leadcapture-scheduler")
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())

	a, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	if a.Redis == nil {
		zapLogger.Warn("Redis not configured, run a single scheduler instance only")
	}

	sched := scheduler.New(cfg.Tenancy.Location(), zapLogger.Named("scheduler"))
	if err := sched.Add(scheduler.DigestJob(cfg.Digest.Schedule, a.Reporter, zapLogger.Named("digest"))); err != nil {
		zapLogger.Fatal("Failed to schedule digest", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down scheduler...")
	cancel()
	<-done
	zapLogger.Info("Scheduler stopped")
}
