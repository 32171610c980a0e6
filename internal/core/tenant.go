package core

import (
	"time"

	"github.com/lib/pq"
)

type Plan string

const (
	PlanNone    Plan = "none"
	PlanEmail   Plan = "email"
	PlanDiscord Plan = "discord"
	PlanWebhook Plan = "webhook"
	PlanAll     Plan = "all"
)

func (p Plan) Emails() bool   { return p == PlanEmail || p == PlanAll }
func (p Plan) Discord() bool  { return p == PlanDiscord || p == PlanAll }
func (p Plan) Webhooks() bool { return p == PlanWebhook || p == PlanAll }

// Tenant is one row of the companies table. Instances held by the directory
// are shared between goroutines and must be treated as read-only.
type Tenant struct {
	Key            string         `json:"subdomain" db:"subdomain"`
	ID             int64          `json:"id" db:"id"`
	Name           string         `json:"company_name" db:"company_name"`
	Email          string         `json:"email" db:"email"`
	DiscordWebhook string         `json:"-" db:"discord_webhook"`
	WebhookURL     string         `json:"-" db:"webhook_url"`
	WebhookSecret  string         `json:"-" db:"webhook_secret"`
	Plan           Plan           `json:"plan" db:"plan"`
	PlanExpiry     time.Time      `json:"plan_expiry" db:"plan_expiry"`
	Fields         pq.StringArray `json:"lead_fields" db:"lead_fields"`
}

// Expired reports whether the plan ended before the given calendar day.
func (t *Tenant) Expired(today time.Time) bool {
	return DateOf(t.PlanExpiry).Before(DateOf(today))
}

// DaysLeft is the number of calendar days from today until plan expiry.
func (t *Tenant) DaysLeft(today time.Time) int {
	return DaysUntil(t.PlanExpiry, today)
}
