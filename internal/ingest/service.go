// Package ingest accepts lead submissions for the tenant a request's host
// resolves to.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/metrics"
	"github.com/mysqft/leadcapture/internal/notify"
)

type TenantResolver interface {
	Lookup(ctx context.Context, key string) (*core.Tenant, bool)
}

type LeadStore interface {
	InsertLead(ctx context.Context, tenantID int64, fields core.Fields) (*core.Lead, error)
}

type Notifier interface {
	Notify(ctx context.Context, tenant *core.Tenant, lead *core.Lead, event string, today time.Time) []notify.Delivery
}

// Receipt describes a stored submission.
type Receipt struct {
	Tenant     string
	LeadID     int64
	Deliveries []notify.Delivery
}

type Service struct {
	tenants    TenantResolver
	store      LeadStore
	notifier   Notifier
	rootDomain string
	rootTenant string
	location   *time.Location
	logger     *zap.Logger
	metrics    *metrics.Collector
	now        func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(tenants TenantResolver, store LeadStore, notifier Notifier, cfg config.TenancyConfig, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		tenants:    tenants,
		store:      store,
		notifier:   notifier,
		rootDomain: cfg.RootDomain,
		rootTenant: cfg.RootTenant,
		location:   cfg.Location(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unknownTenantLabel stands in for hosts with no directory entry; their keys
// come straight from the request and must not become label values.
const unknownTenantLabel = "unknown"

// Submit validates and stores one lead, then dispatches its notifications.
// Only caller-facing rejections and persistence failures are returned.
func (s *Service) Submit(ctx context.Context, host string, form url.Values) (*Receipt, error) {
	const op = "ingest.Submit"

	key := TenantKey(host, s.rootDomain, s.rootTenant)

	tenant, ok := s.tenants.Lookup(ctx, key)
	if !ok {
		s.metrics.RecordSubmission(unknownTenantLabel, "unknown_tenant")
		return nil, core.E(core.KindConfigurationAbsent, op, fmt.Errorf("no active tenant %q", key))
	}

	today := core.DateOf(s.now().In(s.location))
	if tenant.Expired(today) {
		s.metrics.RecordSubmission(key, "expired")
		return nil, core.E(core.KindPlanExpired, op,
			fmt.Errorf("plan for %q expired on %s", key, tenant.PlanExpiry.Format(time.DateOnly)))
	}

	fields := ExtractFields(tenant.Fields, form)
	if len(fields) == 0 {
		s.metrics.RecordSubmission(key, "empty")
		return nil, core.E(core.KindValidationEmpty, op, fmt.Errorf("no accepted fields for %q", key))
	}

	lead, err := s.store.InsertLead(ctx, tenant.ID, fields)
	if err != nil {
		s.metrics.RecordSubmission(key, "persistence_error")
		s.logger.Error("Failed to store lead",
			zap.String("tenant", key),
			zap.Error(err))
		return nil, core.E(core.KindPersistence, op, err)
	}

	s.metrics.RecordSubmission(key, "stored")
	s.logger.Info("Lead stored",
		zap.String("tenant", key),
		zap.Int64("lead_id", lead.ID),
		zap.Int("fields", len(fields)))

	receipt := &Receipt{Tenant: key, LeadID: lead.ID}
	if s.notifier != nil {
		// A visitor disconnecting must not cut delivery of a stored lead short.
		receipt.Deliveries = s.notifier.Notify(context.WithoutCancel(ctx), tenant, lead, core.EventLeadCreated, today)
	}

	return receipt, nil
}

// ExtractFields keeps the accepted fields that carry a non-blank value.
func ExtractFields(accepted []string, form url.Values) core.Fields {
	fields := make(core.Fields, len(accepted))
	for _, name := range accepted {
		if v := strings.TrimSpace(form.Get(name)); v != "" {
			fields[name] = v
		}
	}
	return fields
}
