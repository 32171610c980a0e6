// Package digest emails each tenant a daily export of its leads and purges
// the exported rows.
package digest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/metrics"
	"github.com/mysqft/leadcapture/internal/notify"
	"github.com/mysqft/leadcapture/internal/queue"
	"github.com/mysqft/leadcapture/internal/storage/redis"
)

const lockKey = "lock:digest:daily"

var ErrRunInProgress = errors.New("digest run already in progress")

type Store interface {
	Today(ctx context.Context) (time.Time, error)
	ListReportableTenants(ctx context.Context, day time.Time) ([]*core.Tenant, error)
	LeadsForDay(ctx context.Context, tenantID int64, day time.Time) ([]*core.Lead, error)
	DeleteLeads(ctx context.Context, tenantID int64, day time.Time, ids []int64) (int64, error)
}

type Sender interface {
	SendDigest(ctx context.Context, tenant *core.Tenant, day time.Time, attachments []notify.Attachment) error
}

// LostReportSink records reports that could not be delivered.
type LostReportSink interface {
	Push(ctx context.Context, report *queue.LostReport) error
}

type Outcome string

const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeSent           Outcome = "sent"
	OutcomePurged         Outcome = "purged"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeRetained       Outcome = "retained"
	OutcomeFailed         Outcome = "failed"
)

type TenantResult struct {
	Tenant  string
	Leads   int
	Purged  int64
	Outcome Outcome
	Err     error
}

type Summary struct {
	RunID    string
	Day      time.Time
	Tenants  []TenantResult
	Duration time.Duration
}

type Reporter struct {
	store           Store
	sender          Sender
	lock            *redis.Client
	lost            LostReportSink
	lockTTL         time.Duration
	concurrency     int
	xlsx            bool
	retainOnFailure bool
	logger          *zap.Logger
	metrics         *metrics.Collector
	running         atomic.Bool
}

type Option func(*Reporter)

// WithLock makes runs exclusive across processes sharing the Redis instance.
func WithLock(client *redis.Client, ttl time.Duration) Option {
	return func(r *Reporter) {
		r.lock = client
		r.lockTTL = ttl
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Reporter) { r.metrics = m }
}

func WithLostReports(sink LostReportSink) Option {
	return func(r *Reporter) { r.lost = sink }
}

func NewReporter(store Store, sender Sender, cfg config.DigestConfig, logger *zap.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		store:           store,
		sender:          sender,
		concurrency:     max(cfg.Concurrency, 1),
		xlsx:            cfg.XLSX,
		retainOnFailure: cfg.RetainOnFailure,
		lockTTL:         cfg.LockTTL,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reports and purges today's leads for every tenant with a current plan.
// A failure for one tenant is logged and recorded in the summary; only
// failures that prevent the run from starting are returned.
func (r *Reporter) Run(ctx context.Context) (*Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	if r.lock != nil {
		lock, err := r.lock.TryLock(ctx, lockKey, r.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, ErrRunInProgress
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire digest lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release digest lock", zap.Error(err))
			}
		}()
	}

	day, err := r.store.Today(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current date: %w", err)
	}
	summary.Day = day

	tenants, err := r.store.ListReportableTenants(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	logger.Info("Starting daily digest",
		zap.String("day", day.Format(time.DateOnly)),
		zap.Int("tenants", len(tenants)))

	summary.Tenants = make([]TenantResult, len(tenants))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, tenant := range tenants {
		g.Go(func() error {
			res := r.processTenant(ctx, summary.RunID, tenant, day, logger)
			r.metrics.RecordDigestTenant(string(res.Outcome), int(res.Purged))
			summary.Tenants[i] = res
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	r.metrics.ObserveDigestRun(summary.Duration)

	logger.Info("Daily digest finished",
		zap.Int("tenants", len(tenants)),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// processTenant runs fetch, then delivery, then delete for one tenant.
func (r *Reporter) processTenant(ctx context.Context, runID string, tenant *core.Tenant, day time.Time, logger *zap.Logger) TenantResult {
	res := TenantResult{Tenant: tenant.Key}
	logger = logger.With(zap.String("tenant", tenant.Key))

	leads, err := r.store.LeadsForDay(ctx, tenant.ID, day)
	if err != nil {
		logger.Error("Failed to fetch leads", zap.Error(err))
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.Leads = len(leads)
	if len(leads) == 0 {
		res.Outcome = OutcomeSkipped
		return res
	}

	res.Outcome = OutcomePurged
	if tenant.Plan.Emails() {
		attachments, err := BuildExport(leads).Attachments(r.xlsx)
		if err != nil {
			logger.Error("Failed to build export", zap.Error(err))
			res.Outcome, res.Err = OutcomeFailed, err
			return res
		}

		if err := r.sender.SendDigest(ctx, tenant, day, attachments); err != nil {
			res.Err = err
			r.recordLost(ctx, runID, tenant, day, len(leads), err, logger)
			if r.retainOnFailure {
				logger.Error("Digest delivery failed, keeping leads", zap.Error(err))
				res.Outcome = OutcomeRetained
				return res
			}
			logger.Error("Digest delivery failed, report lost",
				zap.Int("leads", len(leads)),
				zap.Error(err))
			res.Outcome = OutcomeDeliveryFailed
		} else {
			res.Outcome = OutcomeSent
		}
	}

	ids := make([]int64, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
	}

	purged, err := r.store.DeleteLeads(ctx, tenant.ID, day, ids)
	if err != nil {
		logger.Error("Failed to purge leads", zap.Error(err))
		res.Outcome, res.Err = OutcomeFailed, errors.Join(res.Err, err)
		return res
	}
	res.Purged = purged

	logger.Info("Tenant digest complete",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("leads", len(leads)),
		zap.Int64("purged", purged))

	return res
}

func (r *Reporter) recordLost(ctx context.Context, runID string, tenant *core.Tenant, day time.Time, leads int, cause error, logger *zap.Logger) {
	if r.lost == nil {
		return
	}
	report := &queue.LostReport{
		RunID:    runID,
		Tenant:   tenant.Key,
		TenantID: tenant.ID,
		Day:      day.Format(time.DateOnly),
		Leads:    leads,
		Retained: r.retainOnFailure,
		Error:    cause.Error(),
		At:       time.Now().UTC(),
	}
	if err := r.lost.Push(ctx, report); err != nil {
		logger.Warn("Failed to record lost report", zap.Error(err))
	}
}
