package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathanw33/mrsa-kds/internal/storage"
)

// EnsureHistorySchema - create the result_history table when missing
func (p *Postgres) EnsureHistorySchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS result_history (
			history_key TEXT        PRIMARY KEY,
			payload     JSONB       NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create result_history table: %w", err)
	}
	return nil
}

func (p *Postgres) Driver() storage.Driver { return storage.DriverPostgres }

// Get - history blob for key, storage.ErrNotFound when no row exists
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.Pool.QueryRow(ctx, `SELECT payload FROM result_history WHERE history_key = $1`, key).Scan(&payload)
	if IsNoRows(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query result history: %w", err)
	}
	return payload, nil
}

// Put - single-statement upsert; the row is replaced whole
func (p *Postgres) Put(ctx context.Context, key string, data []byte) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO result_history (history_key, payload, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (history_key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert result history: %w", err)
	}
	return nil
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
