// Package app wires the shared collaborators used by the api, scheduler and
// leadctl binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/digest"
	"github.com/mysqft/leadcapture/internal/directory"
	"github.com/mysqft/leadcapture/internal/ingest"
	"github.com/mysqft/leadcapture/internal/metrics"
	"github.com/mysqft/leadcapture/internal/notify"
	"github.com/mysqft/leadcapture/internal/queue"
	"github.com/mysqft/leadcapture/internal/ratelimit"
	"github.com/mysqft/leadcapture/internal/storage/postgres"
	"github.com/mysqft/leadcapture/internal/storage/redis"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *postgres.DB
	Redis     *redis.Client
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
	Directory *directory.Directory
	Fanout    *notify.Fanout
	Reporter  *digest.Reporter
	Ingest    *ingest.Service
	Limiter   ratelimit.Limiter

	// Set only when Redis is configured.
	LostReports *queue.RedisQueue
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Database.AutoMigrate {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database migrations applied")
	}

	db, err := postgres.NewConnection(cfg.Database, cfg.Tenancy.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewCollector(a.Registry)

	if cfg.Redis.URL != "" {
		a.Redis = redis.NewClient(cfg.Redis.URL)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, continuing", zap.Error(err))
		}
		a.Limiter = ratelimit.NewRedisLimiter(a.Redis.Client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		logger.Info("Redis not configured, using in-process rate limiter")
		a.Limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	a.Directory = directory.New(db, logger.Named("directory"),
		directory.WithTTL(cfg.Tenancy.CacheTTL),
		directory.WithMissCooldown(cfg.Tenancy.MissRefreshCooldown),
		directory.WithMetrics(a.Metrics),
	)

	fanoutOpts := []notify.Option{notify.WithMetrics(a.Metrics)}
	mailer, err := notify.NewSMTPMailer(cfg.Mail, cfg.Notify.Timeout)
	switch {
	case errors.Is(err, notify.ErrMailNotConfigured):
		logger.Warn("Mail not configured, daily reports will not be emailed")
	case err != nil:
		a.Close()
		return nil, err
	default:
		fanoutOpts = append(fanoutOpts, notify.WithMailer(mailer))
	}
	a.Fanout = notify.NewFanout(cfg.Notify.Timeout, logger.Named("notify"), fanoutOpts...)

	a.Ingest = ingest.NewService(a.Directory, db, a.Fanout, cfg.Tenancy, logger.Named("ingest"),
		ingest.WithMetrics(a.Metrics))

	reporterOpts := []digest.Option{digest.WithMetrics(a.Metrics)}
	if a.Redis != nil {
		a.LostReports = queue.NewRedisQueue(a.Redis.Client)
		reporterOpts = append(reporterOpts,
			digest.WithLock(a.Redis, cfg.Digest.LockTTL),
			digest.WithLostReports(a.LostReports))
	}
	a.Reporter = digest.NewReporter(db, a.Fanout, cfg.Digest, logger.Named("digest"), reporterOpts...)

	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("Failed to close database", zap.Error(err))
	}
}
