package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds connection details for PostgreSQL
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// ConnString renders the config as a postgres:// URL.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS vidchunk_state (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// PostgresBackend stores each key as one row, scoped by namespace so several
// logical state files can share a table.
type PostgresBackend struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgresBackendFromPool creates the state table if needed. The pool
// belongs to the caller; Close leaves it open.
func NewPostgresBackendFromPool(ctx context.Context, pool *pgxpool.Pool, namespace string) (*PostgresBackend, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}
	return &PostgresBackend{pool: pool, namespace: namespace}, nil
}

func (p *PostgresBackend) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		"SELECT value FROM vidchunk_state WHERE namespace = $1 AND key = $2",
		p.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading state %q: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (p *PostgresBackend) Put(ctx context.Context, key string, value json.RawMessage) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO vidchunk_state (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.namespace, key, []byte(value))
	if err != nil {
		return fmt.Errorf("failed to store state %q: %w", key, err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx,
		"DELETE FROM vidchunk_state WHERE namespace = $1 AND key = $2",
		p.namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete state %q: %w", key, err)
	}
	return nil
}

func (p *PostgresBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT key FROM vidchunk_state WHERE namespace = $1 ORDER BY key",
		p.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list state keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list state keys: %w", err)
	}
	return keys, nil
}

// Close is a no-op; the pool is closed by its owner (see Opener.Close).
func (p *PostgresBackend) Close() error {
	return nil
}
