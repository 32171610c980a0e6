package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups the service's Prometheus metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	// Ingestion
	submissionsTotal *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter

	// Notification Metrics
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	notificationLatency *prometheus.HistogramVec

	// Directory
	directoryRefreshes   *prometheus.CounterVec
	directoryTenants     prometheus.Gauge
	directoryLastRefresh prometheus.Gauge

	// Digest
	digestTenantsTotal *prometheus.CounterVec
	digestLeadsPurged  prometheus.Counter
	digestRunDuration  prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_submissions_total",
				Help: "Lead submissions by tenant and outcome",
			},
			[]string{"tenant", "result"},
		),

		rateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leads_rate_limited_total",
				Help: "Submissions rejected by the rate limiter",
			},
		),

		notificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_notifications_sent_total",
				Help: "Notifications delivered per channel",
			},
			[]string{"tenant", "channel"},
		),

		notificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_notifications_failed_total",
				Help: "Notifications that failed or timed out per channel",
			},
			[]string{"tenant", "channel"},
		),

		notificationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leads_notification_latency_seconds",
				Help:    "Time spent delivering a notification",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"channel"},
		),

		directoryRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_directory_refreshes_total",
				Help: "Tenant directory reloads by result",
			},
			[]string{"result"},
		),

		directoryTenants: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "leads_directory_tenants",
				Help: "Active tenants in the current directory snapshot",
			},
		),

		directoryLastRefresh: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "leads_directory_last_refresh_timestamp_seconds",
				Help: "Unix time of the last successful directory reload",
			},
		),

		digestTenantsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_digest_tenants_total",
				Help: "Tenants handled by the daily digest by outcome",
			},
			[]string{"outcome"},
		),

		digestLeadsPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leads_digest_purged_total",
				Help: "Lead rows deleted after export",
			},
		),

		digestRunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leads_digest_run_duration_seconds",
				Help:    "Duration of a full digest run",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}
}

func (c *Collector) RecordSubmission(tenant, result string) {
	if c == nil {
		return
	}
	c.submissionsTotal.WithLabelValues(tenant, result).Inc()
}

func (c *Collector) RecordRateLimited() {
	if c == nil {
		return
	}
	c.rateLimitedTotal.Inc()
}

func (c *Collector) RecordNotification(tenant, channel string, success bool, latency time.Duration) {
	if c == nil {
		return
	}
	if success {
		c.notificationsSent.WithLabelValues(tenant, channel).Inc()
	} else {
		c.notificationsFailed.WithLabelValues(tenant, channel).Inc()
	}
	c.notificationLatency.WithLabelValues(channel).Observe(latency.Seconds())
}

func (c *Collector) RecordDirectoryRefresh(success bool, tenants int, at time.Time) {
	if c == nil {
		return
	}
	if !success {
		c.directoryRefreshes.WithLabelValues("failure").Inc()
		return
	}
	c.directoryRefreshes.WithLabelValues("success").Inc()
	c.directoryTenants.Set(float64(tenants))
	c.directoryLastRefresh.Set(float64(at.Unix()))
}

func (c *Collector) RecordDigestTenant(outcome string, purged int) {
	if c == nil {
		return
	}
	c.digestTenantsTotal.WithLabelValues(outcome).Inc()
	if purged > 0 {
		c.digestLeadsPurged.Add(float64(purged))
	}
}

func (c *Collector) ObserveDigestRun(d time.Duration) {
	if c == nil {
		return
	}
	c.digestRunDuration.Observe(d.Seconds())
}
