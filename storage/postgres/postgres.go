// Package postgres implements storage.Repository backed by PostgreSQL.
//
// The records table uses a composite primary key (bucket, key) that
// mirrors the key space used by the BBolt and in-memory backends.
// Record data is stored as BYTEA; read-modify-write updates take a row
// lock so concurrent writers serialize per record.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmaher/pcaptcha/storage"
)

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx connection pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Put(bucket, key string, data []byte) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO records (bucket, key, data) VALUES ($1, $2, $3)
		 ON CONFLICT (bucket, key) DO UPDATE SET data = EXCLUDED.data`,
		bucket, key, data)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) Get(bucket, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT data FROM records WHERE bucket = $1 AND key = $2`,
		bucket, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *Store) Delete(bucket, key string) error {
	tag, err := s.pool.Exec(context.Background(),
		`DELETE FROM records WHERE bucket = $1 AND key = $2`, bucket, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) List(bucket string) ([]string, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT key FROM records WHERE bucket = $1 ORDER BY key`, bucket)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) ForEach(bucket string, fn func(key string, data []byte) error) error {
	rows, err := s.pool.Query(context.Background(),
		`SELECT key, data FROM records WHERE bucket = $1 ORDER BY key`, bucket)
	if err != nil {
		return fmt.Errorf("iterate %s: %w", bucket, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k string
		var data []byte
		if err := rows.Scan(&k, &data); err != nil {
			return err
		}
		if err := fn(k, data); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Update(bucket, key string, fn func(data []byte) ([]byte, error)) error {
	ctx := context.Background()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current []byte
		err := tx.QueryRow(ctx,
			`SELECT data FROM records WHERE bucket = $1 AND key = $2 FOR UPDATE`,
			bucket, key).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update read %s/%s: %w", bucket, key, err)
		}
		updated, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO records (bucket, key, data) VALUES ($1, $2, $3)
			 ON CONFLICT (bucket, key) DO UPDATE SET data = EXCLUDED.data`,
			bucket, key, updated)
		if err != nil {
			return fmt.Errorf("update write %s/%s: %w", bucket, key, err)
		}
		return nil
	})
}
