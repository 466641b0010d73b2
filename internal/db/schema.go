package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS rate_samples (
	id         BIGSERIAL PRIMARY KEY,
	code       TEXT NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	source     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS rate_samples_code_ts_idx ON rate_samples (code, timestamp DESC);
`

// EnsureSchema creates the archive table if it does not exist.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
