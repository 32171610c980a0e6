package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysqft/leadcapture/internal/core"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	return NewDB(sqlx.NewDb(raw, "postgres"), time.Second), mock
}

var tenantCols = []string{
	"subdomain", "id", "company_name", "email", "discord_webhook",
	"webhook_url", "webhook_secret", "plan", "plan_expiry", "lead_fields",
}

func TestListActiveTenants_Success(t *testing.T) {
	db, mock := setupMockDB(t)

	expiry := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(tenantCols).
		AddRow("acme", int64(1), "Acme", "ops@acme.test", "https://discord.test/hook", "", "", "all", expiry, []byte("{name,email,phone}")).
		AddRow("globex", int64(2), "Globex", "", "", "https://globex.test/hook", "s3cret", "webhook", expiry, []byte("{name}"))

	mock.ExpectQuery(`(?s)SELECT .* FROM companies\s+WHERE is_active = true`).WillReturnRows(rows)

	tenants, err := db.ListActiveTenants(context.Background())

	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "acme", tenants[0].Key)
	assert.Equal(t, core.PlanAll, tenants[0].Plan)
	assert.Equal(t, []string{"name", "email", "phone"}, []string(tenants[0].Fields))
	assert.Equal(t, "s3cret", tenants[1].WebhookSecret)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveTenants_Error(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection refused"))

	tenants, err := db.ListActiveTenants(context.Background())

	assert.Nil(t, tenants)
	assert.ErrorContains(t, err, "failed to list active tenants")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReportableTenants_FiltersByDay(t *testing.T) {
	db, mock := setupMockDB(t)

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`plan_expiry >= \$1`).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows(tenantCols))

	tenants, err := db.ListReportableTenants(context.Background(), day.Add(13*time.Hour))

	require.NoError(t, err)
	assert.Empty(t, tenants)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLead_Success(t *testing.T) {
	db, mock := setupMockDB(t)

	createdAt := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO company_leads`).
		WithArgs(int64(7), `{"name":"Ada"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(99), createdAt))
	mock.ExpectCommit()

	lead, err := db.InsertLead(context.Background(), 7, core.Fields{"name": "Ada"})

	require.NoError(t, err)
	assert.Equal(t, int64(99), lead.ID)
	assert.Equal(t, int64(7), lead.TenantID)
	assert.Equal(t, createdAt, lead.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLead_RollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO company_leads`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	lead, err := db.InsertLead(context.Background(), 7, core.Fields{"name": "Ada"})

	assert.Nil(t, lead)
	assert.ErrorContains(t, err, "failed to insert lead")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadsForDay_Success(t *testing.T) {
	db, mock := setupMockDB(t)

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	ts := day.Add(8 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "company_id", "lead_data", "created_at"}).
		AddRow(int64(1), int64(7), []byte(`{"x":"1"}`), ts).
		AddRow(int64(2), int64(7), []byte(`{"y":"2"}`), ts.Add(time.Minute))

	mock.ExpectQuery(`created_at::date = \$2`).
		WithArgs(int64(7), day).
		WillReturnRows(rows)

	leads, err := db.LeadsForDay(context.Background(), 7, day)

	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, core.Fields{"x": "1"}, leads[0].Fields)
	assert.Equal(t, core.Fields{"y": "2"}, leads[1].Fields)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLeads_ScopedAndCommitted(t *testing.T) {
	db, mock := setupMockDB(t)

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM company_leads\s+WHERE company_id = \$1 AND created_at::date = \$2 AND id = ANY\(\$3\)`).
		WithArgs(int64(7), day, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := db.DeleteLeads(context.Background(), 7, day, []int64{1, 2, 3})

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLeads_EmptyIsNoop(t *testing.T) {
	db, mock := setupMockDB(t)

	n, err := db.DeleteLeads(context.Background(), 7, time.Now(), nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToday(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT CURRENT_DATE`).
		WillReturnRows(sqlmock.NewRows([]string{"current_date"}).AddRow(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))

	today, err := db.Today(context.Background())

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), today)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSessionParams(t *testing.T) {
	dsn, err := withSessionParams("postgres://u:p@db:5432/leads?sslmode=require", "UTC")
	require.NoError(t, err)
	assert.Contains(t, dsn, "connect_timeout=5")
	assert.Contains(t, dsn, "timezone=UTC")
	assert.Contains(t, dsn, "sslmode=require")

	dsn, err = withSessionParams("postgres://u:p@db/leads?timezone=Asia%2FKolkata", "UTC")
	require.NoError(t, err)
	assert.Contains(t, dsn, "timezone=Asia%2FKolkata")

	dsn, err = withSessionParams("host=db dbname=leads", "")
	require.NoError(t, err)
	assert.Equal(t, "host=db dbname=leads connect_timeout=5 timezone=UTC", dsn)
}
