package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/api"
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

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format, "leadcapture-api")
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	// A failed first load leaves an empty directory; lookups retry on miss.
	_ = a.Directory.Refresh(ctx, true)
	go a.Directory.Watch(ctx)

	// Each API process reloads its own directory after the nightly purge.
	sched := scheduler.New(cfg.Tenancy.Location(), zapLogger.Named("scheduler"))
	if err := sched.Add(scheduler.RefreshJob(cfg.Digest.RefreshSchedule, a.Directory)); err != nil {
		zapLogger.Fatal("Failed to schedule directory refresh", zap.Error(err))
	}
	go sched.Start(ctx)

	server, err := api.NewServer(cfg, api.Deps{
		Submitter: a.Ingest,
		Directory: a.Directory,
		Digest:    a.Reporter,
		DB:        a.DB,
		Limiter:   a.Limiter,
		Metrics:   a.Metrics,
		Gatherer:  a.Registry,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create server", zap.Error(err))
	}

	// Graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()

	zapLogger.Info("Server exited")
}
