package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	bucket TEXT NOT NULL,
	key    TEXT NOT NULL,
	data   BYTEA NOT NULL,
	PRIMARY KEY (bucket, key)
);
`

// EnsureSchema creates the records table if it does not already exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
