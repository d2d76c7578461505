package database

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS overview_samples (
		id BIGSERIAL PRIMARY KEY,
		seq BIGINT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		source TEXT NOT NULL,
		active_intersections INTEGER NOT NULL,
		total_vehicles INTEGER NOT NULL,
		emergency_vehicles INTEGER NOT NULL,
		system_health_pct DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS overview_samples_recorded_at_idx ON overview_samples (recorded_at)`,
	`CREATE TABLE IF NOT EXISTS mode_changes (
		id BIGSERIAL PRIMARY KEY,
		seq BIGINT NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL,
		mode TEXT NOT NULL
	)`,
}

func Connect(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is required")
	}
	return sqlx.Connect("pgx", dsn)
}

// Migrate creates the history tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
