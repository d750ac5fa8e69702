package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/teklifbul/intake/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	mu        sync.Mutex
	pool      Pool
	bucketCap int
}

// NewPostgres creates a PostgresStore from a connection string.
func NewPostgres(ctx context.Context, connString string, bucketCap int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "memory: connect postgres")
	}
	return NewPostgresFromPool(pool, bucketCap), nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool Pool, bucketCap int) *PostgresStore {
	if bucketCap <= 0 {
		bucketCap = DefaultBucketCap
	}
	return &PostgresStore{pool: pool, bucketCap: bucketCap}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id         UUID PRIMARY KEY,
	bucket     TEXT NOT NULL,
	alias      TEXT NOT NULL,
	field      TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	seen       INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	touched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (bucket, alias, field)
);

CREATE INDEX IF NOT EXISTS idx_memory_entries_bucket ON memory_entries(bucket);
CREATE INDEX IF NOT EXISTS idx_memory_entries_touched_at ON memory_entries(touched_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "memory: migrate postgres")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetAliases(ctx context.Context, submitterID string) ([]model.MemoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT alias, field, confidence, seen FROM memory_entries
		 WHERE bucket = $1 ORDER BY touched_at DESC`,
		bucketKey(submitterID),
	)
	if err != nil {
		return nil, eris.Wrap(err, "memory: get aliases")
	}
	defer rows.Close()

	var out []model.MemoryEntry
	for rows.Next() {
		var e model.MemoryEntry
		if err := rows.Scan(&e.Alias, &e.Field, &e.Confidence, &e.Seen); err != nil {
			return nil, eris.Wrap(err, "memory: scan alias")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "memory: iterate aliases")
}

func (s *PostgresStore) Remember(ctx context.Context, submitterID, alias string, field model.TargetField, confidence float64) error {
	if alias == "" || field == "" {
		return nil
	}
	bucket := bucketKey(submitterID)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_entries (id, bucket, alias, field, confidence, seen, created_at, touched_at)
		 VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
		 ON CONFLICT (bucket, alias, field) DO UPDATE SET
			seen       = memory_entries.seen + 1,
			confidence = (memory_entries.confidence * memory_entries.seen + EXCLUDED.confidence) / (memory_entries.seen + 1),
			touched_at = EXCLUDED.touched_at`,
		uuid.New().String(), bucket, alias, string(field), confidence, now,
	)
	if err != nil {
		return eris.Wrap(err, "memory: remember")
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM memory_entries WHERE bucket = $1 AND id NOT IN (
			SELECT id FROM memory_entries WHERE bucket = $1
			ORDER BY touched_at DESC, created_at DESC LIMIT $2
		)`,
		bucket, s.bucketCap,
	)
	return eris.Wrap(err, "memory: enforce bucket cap")
}
