package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS services (
			id           BIGSERIAL PRIMARY KEY,
			name         TEXT NOT NULL UNIQUE,
			endpoint     TEXT NOT NULL,
			content_type TEXT NOT NULL CHECK (content_type IN ('application/json', 'application/x-www-form-urlencoded')),
			status       BOOLEAN NOT NULL DEFAULT TRUE,
			token        TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS service_events (
			service_id BIGINT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
			event_name TEXT NOT NULL,
			PRIMARY KEY (service_id, event_name)
		);

		CREATE TABLE IF NOT EXISTS delivery_outcomes (
			id            TEXT PRIMARY KEY,
			occurrence_id TEXT NOT NULL,
			service_id    BIGINT NOT NULL,
			event_name    TEXT NOT NULL,
			endpoint      TEXT NOT NULL,
			status        TEXT NOT NULL,
			status_line   TEXT,
			error         TEXT,
			attempted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_service_events_event_name ON service_events(event_name);
		CREATE INDEX IF NOT EXISTS idx_delivery_outcomes_service_id ON delivery_outcomes(service_id);
		CREATE INDEX IF NOT EXISTS idx_delivery_outcomes_attempted_at ON delivery_outcomes(attempted_at);
	`

	_, err := db.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
