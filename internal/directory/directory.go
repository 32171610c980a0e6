package directory

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/metrics"
)

const DefaultTTL = 300 * time.Second

// TenantSource loads every active tenant.
type TenantSource interface {
	ListActiveTenants(ctx context.Context) ([]*core.Tenant, error)
}

// Snapshot is an immutable view of all active tenants. It is replaced as a
// whole on refresh and never modified after publication.
type Snapshot struct {
	tenants  map[string]*core.Tenant
	loadedAt time.Time
}

func newSnapshot(tenants []*core.Tenant, at time.Time) *Snapshot {
	m := make(map[string]*core.Tenant, len(tenants))
	for _, t := range tenants {
		m[t.Key] = t
	}
	return &Snapshot{tenants: m, loadedAt: at}
}

func (s *Snapshot) Len() int { return len(s.tenants) }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Tenants returns a copy of the snapshot keyed by tenant key.
func (s *Snapshot) Tenants() map[string]core.Tenant {
	out := make(map[string]core.Tenant, len(s.tenants))
	for k, t := range s.tenants {
		out[k] = *t
	}
	return out
}

type Directory struct {
	source   TenantSource
	ttl      time.Duration
	cooldown time.Duration
	logger   *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time

	current     atomic.Pointer[Snapshot]
	lastAttempt atomic.Int64
	group       singleflight.Group
}

type Option func(*Directory)

func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithMissCooldown bounds how often a cache miss may force a reload.
func WithMissCooldown(cooldown time.Duration) Option {
	return func(d *Directory) { d.cooldown = cooldown }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(d *Directory) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func New(source TenantSource, logger *zap.Logger, opts ...Option) *Directory {
	d := &Directory{
		source: source,
		ttl:    DefaultTTL,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.current.Store(newSnapshot(nil, time.Time{}))
	return d
}

// Snapshot returns the snapshot currently published to readers.
func (d *Directory) Snapshot() *Snapshot {
	return d.current.Load()
}

// Get looks key up in the current snapshot. It never performs I/O.
func (d *Directory) Get(key string) (*core.Tenant, bool) {
	t, ok := d.current.Load().tenants[key]
	return t, ok
}

// Refresh reloads the directory when forced or when the snapshot is older than
// the TTL. Concurrent callers share one load. A failed load keeps the previous
// snapshot and is only logged; the returned error is informational.
func (d *Directory) Refresh(ctx context.Context, force bool) error {
	if !force && d.now().Sub(d.current.Load().loadedAt) < d.ttl {
		return nil
	}

	_, err, _ := d.group.Do("refresh", func() (interface{}, error) {
		return nil, d.load(ctx)
	})
	return err
}

func (d *Directory) load(ctx context.Context) error {
	d.lastAttempt.Store(d.now().UnixNano())

	tenants, err := d.source.ListActiveTenants(ctx)
	if err != nil {
		d.logger.Error("Failed to refresh tenant directory, keeping previous snapshot",
			zap.Error(err),
			zap.Int("tenants", d.current.Load().Len()),
		)
		d.metrics.RecordDirectoryRefresh(false, 0, time.Time{})
		return err
	}

	at := d.now()
	d.current.Store(newSnapshot(tenants, at))
	d.metrics.RecordDirectoryRefresh(true, len(tenants), at)

	d.logger.Info("Loaded tenant directory", zap.Int("tenants", len(tenants)))
	return nil
}

// Lookup resolves key, allowing one forced reload and a single retry on a miss.
// Reloads caused by misses are spaced at least the miss cooldown apart.
func (d *Directory) Lookup(ctx context.Context, key string) (*core.Tenant, bool) {
	if t, ok := d.Get(key); ok {
		return t, true
	}

	last := time.Unix(0, d.lastAttempt.Load())
	if d.cooldown > 0 && d.now().Sub(last) < d.cooldown {
		return nil, false
	}

	if err := d.Refresh(ctx, true); err != nil {
		return nil, false
	}
	return d.Get(key)
}

// Watch keeps the snapshot within the TTL until ctx is cancelled.
func (d *Directory) Watch(ctx context.Context) {
	ticker := time.NewTicker(d.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.Refresh(ctx, false)
		}
	}
}
