// Package notify delivers lead notifications to a tenant's configured
// channels. Failures are logged and recorded, never returned to the visitor.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/metrics"
)

type Channel string

const (
	ChannelDiscord Channel = "discord"
	ChannelWebhook Channel = "webhook"
	ChannelEmail   Channel = "email"
)

var ErrNoRecipient = errors.New("tenant has no email address")

// Delivery is the outcome of one channel attempt.
type Delivery struct {
	Channel Channel
	Err     error
}

type Fanout struct {
	discord *discordSender
	webhook *webhookSender
	mailer  Mailer
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

type Option func(*Fanout)

func WithMailer(m Mailer) Option {
	return func(f *Fanout) { f.mailer = m }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(f *Fanout) { f.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(f *Fanout) { f.now = now }
}

func NewFanout(timeout time.Duration, logger *zap.Logger, opts ...Option) *Fanout {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "leadcapture/1.0")

	f := &Fanout{
		discord: &discordSender{client: client},
		webhook: &webhookSender{client: client},
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Notify sends the per-lead notifications the tenant's plan enables and waits
// for every channel to finish or time out. today is the application date used
// for the expiry warning.
func (f *Fanout) Notify(ctx context.Context, tenant *core.Tenant, lead *core.Lead, event string, today time.Time) []Delivery {
	var (
		g       errgroup.Group
		results = make(chan Delivery, 2)
	)

	if tenant.Plan.Discord() && tenant.DiscordWebhook != "" {
		content := ChatMessage(tenant, lead.Fields, today)
		g.Go(func() error {
			results <- f.deliver(ctx, tenant, ChannelDiscord, func(ctx context.Context) error {
				return f.discord.send(ctx, tenant.DiscordWebhook, content)
			})
			return nil
		})
	}

	if tenant.Plan.Webhooks() {
		if tenant.WebhookURL == "" || tenant.WebhookSecret == "" {
			f.logger.Debug("Webhook not configured, skipping",
				zap.String("tenant", tenant.Key))
		} else {
			env := Envelope{Event: event, Company: tenant.Name, Lead: lead.Fields}
			g.Go(func() error {
				results <- f.deliver(ctx, tenant, ChannelWebhook, func(ctx context.Context) error {
					return f.webhook.send(ctx, tenant.WebhookURL, tenant.WebhookSecret, env, f.now())
				})
				return nil
			})
		}
	}

	_ = g.Wait()
	close(results)

	var out []Delivery
	for d := range results {
		out = append(out, d)
	}
	return out
}

// SendDigest emails the daily report. Unlike Notify, the error is returned so
// the caller can decide what to do with the exported leads.
func (f *Fanout) SendDigest(ctx context.Context, tenant *core.Tenant, day time.Time, attachments []Attachment) error {
	if f.mailer == nil {
		return core.E(core.KindDelivery, "notify.SendDigest", ErrMailNotConfigured)
	}
	if tenant.Email == "" {
		return core.E(core.KindDelivery, "notify.SendDigest", ErrNoRecipient)
	}

	msg := &Message{
		To:          tenant.Email,
		Subject:     DigestSubject,
		Body:        DigestBody(tenant, day),
		Attachments: attachments,
	}

	d := f.deliver(ctx, tenant, ChannelEmail, func(ctx context.Context) error {
		return f.mailer.Send(ctx, msg)
	})
	if d.Err != nil {
		return core.E(core.KindDelivery, "notify.SendDigest", d.Err)
	}
	return nil
}

func (f *Fanout) deliver(ctx context.Context, tenant *core.Tenant, ch Channel, send func(context.Context) error) Delivery {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := send(ctx)
	latency := time.Since(start)

	f.metrics.RecordNotification(tenant.Key, string(ch), err == nil, latency)

	if err != nil {
		f.logger.Warn("Notification failed",
			zap.String("tenant", tenant.Key),
			zap.String("channel", string(ch)),
			zap.Duration("latency", latency),
			zap.Error(err))
	} else {
		f.logger.Debug("Notification delivered",
			zap.String("tenant", tenant.Key),
			zap.String("channel", string(ch)),
			zap.Duration("latency", latency))
	}

	return Delivery{Channel: ch, Err: err}
}
