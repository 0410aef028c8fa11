package statestore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend kinds accepted by Opener.
const (
	KindFile     = "file"
	KindMemory   = "memory"
	KindPostgres = "postgres"
)

// Opener creates backends for named state files according to configuration.
// Postgres backends opened by one Opener share a single pool.
type Opener struct {
	Kind     string
	Dir      string
	Postgres PostgresConfig
	Logger   *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// Open returns a backend for the state file name (e.g. "video_batch_state.json").
// For Postgres the name without extension becomes the namespace.
func (o *Opener) Open(ctx context.Context, name string) (Backend, error) {
	switch o.Kind {
	case "", KindFile:
		return NewFileBackend(filepath.Join(o.Dir, name), o.Logger), nil
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindPostgres:
		pool, err := o.sharedPool(ctx)
		if err != nil {
			return nil, err
		}
		return NewPostgresBackendFromPool(ctx, pool, strings.TrimSuffix(name, filepath.Ext(name)))
	default:
		return nil, fmt.Errorf("unknown state backend %q", o.Kind)
	}
}

func (o *Opener) sharedPool(ctx context.Context) (*pgxpool.Pool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pool != nil {
		return o.pool, nil
	}
	pool, err := pgxpool.New(ctx, o.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	o.pool = pool
	return pool, nil
}

// Close releases the shared Postgres pool, if any.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pool != nil {
		o.pool.Close()
		o.pool = nil
	}
	return nil
}
