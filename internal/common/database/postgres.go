// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"passport-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient owns the pool shared by the payment, passport and
// notification workers.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		sector      TEXT,
		owner_email TEXT,
		owner_phone TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS passport_payments (
		id          UUID PRIMARY KEY,
		business_id TEXT NOT NULL REFERENCES businesses(id),
		action      TEXT NOT NULL,
		amount      NUMERIC(12,2) NOT NULL,
		currency    TEXT NOT NULL DEFAULT 'ZMW',
		status      TEXT NOT NULL,
		consumed_at TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_passport_payments_open
		ON passport_payments (business_id, action, created_at)
		WHERE status = 'succeeded' AND consumed_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS credit_passports (
		id                UUID PRIMARY KEY,
		business_id       TEXT NOT NULL REFERENCES businesses(id),
		fundability_score INTEGER NOT NULL,
		interpretation    TEXT NOT NULL,
		overall_risk      TEXT NOT NULL,
		passport          JSONB NOT NULL,
		payment_id        UUID REFERENCES passport_payments(id),
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_passports_business
		ON credit_passports (business_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id            BIGSERIAL PRIMARY KEY,
		event_type    TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT NOT NULL,
		details       JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the passport tables when they are missing.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
