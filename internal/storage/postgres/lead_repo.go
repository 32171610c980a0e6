package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mysqft/leadcapture/internal/core"
)

// InsertLead stores one submission in its own transaction. created_at is
// assigned by the database.
func (db *DB) InsertLead(ctx context.Context, tenantID int64, fields core.Fields) (*core.Lead, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lead := &core.Lead{TenantID: tenantID, Fields: fields}
	query := `
        INSERT INTO company_leads (company_id, lead_data)
        VALUES ($1, $2)
        RETURNING id, created_at`

	if err := tx.QueryRowxContext(ctx, query, tenantID, fields).Scan(&lead.ID, &lead.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lead: %w", err)
	}
	return lead, nil
}

// LeadsForDay returns the tenant's leads created on the given calendar day.
func (db *DB) LeadsForDay(ctx context.Context, tenantID int64, day time.Time) ([]*core.Lead, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	leads := []*core.Lead{}
	query := `
        SELECT id, company_id, lead_data, created_at
        FROM company_leads
        WHERE company_id = $1 AND created_at::date = $2
        ORDER BY created_at, id`

	if err := db.SelectContext(ctx, &leads, query, tenantID, core.DateOf(day)); err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}
	return leads, nil
}

// DeleteLeads removes exactly the given rows, still scoped by tenant and day so
// that a stale id list can never reach another tenant's or another day's data.
func (db *DB) DeleteLeads(ctx context.Context, tenantID int64, day time.Time, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        DELETE FROM company_leads
        WHERE company_id = $1 AND created_at::date = $2 AND id = ANY($3)`

	res, err := tx.ExecContext(ctx, query, tenantID, core.DateOf(day), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete leads: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return deleted, nil
}
