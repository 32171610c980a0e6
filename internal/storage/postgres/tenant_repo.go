package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mysqft/leadcapture/internal/core"
)

const tenantColumns = `
            subdomain, id, company_name,
            COALESCE(email, '') AS email,
            COALESCE(discord_webhook, '') AS discord_webhook,
            COALESCE(webhook_url, '') AS webhook_url,
            COALESCE(webhook_secret, '') AS webhook_secret,
            plan, plan_expiry, lead_fields`

// ListActiveTenants loads every active company for the tenant directory.
func (db *DB) ListActiveTenants(ctx context.Context) ([]*core.Tenant, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tenants := []*core.Tenant{}
	query := `SELECT` + tenantColumns + `
        FROM companies
        WHERE is_active = true
        ORDER BY subdomain`

	if err := db.SelectContext(ctx, &tenants, query); err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	return tenants, nil
}

// ListReportableTenants returns active companies whose plan has not expired on day.
func (db *DB) ListReportableTenants(ctx context.Context, day time.Time) ([]*core.Tenant, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tenants := []*core.Tenant{}
	query := `SELECT` + tenantColumns + `
        FROM companies
        WHERE is_active = true AND plan_expiry >= $1
        ORDER BY id`

	if err := db.SelectContext(ctx, &tenants, query, core.DateOf(day)); err != nil {
		return nil, fmt.Errorf("failed to list reportable tenants: %w", err)
	}
	return tenants, nil
}

// Today is the database's CURRENT_DATE, the authoritative day for the digest.
func (db *DB) Today(ctx context.Context) (time.Time, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var today time.Time
	if err := db.GetContext(ctx, &today, `SELECT CURRENT_DATE`); err != nil {
		return time.Time{}, fmt.Errorf("failed to read current date: %w", err)
	}
	return core.DateOf(today), nil
}
