package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/mysqft/leadcapture/internal/config"
)

const defaultConnectTimeout = "5"

type DB struct {
	*sqlx.DB
	queryTimeout time.Duration
}

func NewConnection(cfg config.DatabaseConfig, timezone string) (*DB, error) {
	dsn, err := withSessionParams(cfg.URL, timezone)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewDB(db, cfg.QueryTimeout), nil
}

func NewDB(db *sqlx.DB, queryTimeout time.Duration) *DB {
	return &DB{DB: db, queryTimeout: queryTimeout}
}

func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// withSessionParams pins connect_timeout and the session TimeZone so that
// created_at::date and CURRENT_DATE follow the configured zone on every pooled
// connection. Values already present in the DSN win.
func withSessionParams(dsn, timezone string) (string, error) {
	if timezone == "" {
		timezone = "UTC"
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid database url: %w", err)
		}
		q := u.Query()
		if q.Get("connect_timeout") == "" {
			q.Set("connect_timeout", defaultConnectTimeout)
		}
		if q.Get("timezone") == "" {
			q.Set("timezone", timezone)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if !strings.Contains(dsn, "connect_timeout=") {
		dsn += " connect_timeout=" + defaultConnectTimeout
	}
	if !strings.Contains(dsn, "timezone=") {
		dsn += " timezone=" + timezone
	}
	return strings.TrimSpace(dsn), nil
}
