package memory

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/teklifbul/intake/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. A single mutex
// serializes writers so concurrent Remember calls cannot lose updates to
// seen/confidence.
type SQLiteStore struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	bucketCap int
}

// NewSQLite opens (or creates) a SQLite memory store at the given path. A
// bucketCap <= 0 uses DefaultBucketCap.
func NewSQLite(path string, bucketCap int) (*SQLiteStore, error) {
	if bucketCap <= 0 {
		bucketCap = DefaultBucketCap
	}
	s := &SQLiteStore{path: path, bucketCap: bucketCap}
	if err := s.open(); err != nil {
		// A file the driver cannot even open is reset, not surfaced: memory
		// is advisory and losing it only costs re-learning.
		zap.L().Warn("memory: sqlite store unreadable, resetting to empty",
			zap.String("path", path), zap.Error(err))
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, err
		}
		if err := s.open(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLiteStore) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return eris.Wrap(err, "memory: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return eris.Wrapf(err, "memory: exec %s", pragma)
		}
	}
	s.db = db
	return nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id         TEXT PRIMARY KEY,
	bucket     TEXT NOT NULL,
	alias      TEXT NOT NULL,
	field      TEXT NOT NULL,
	confidence REAL NOT NULL,
	seen       INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	touched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (bucket, alias, field)
);

CREATE INDEX IF NOT EXISTS idx_memory_entries_bucket ON memory_entries(bucket);
CREATE INDEX IF NOT EXISTS idx_memory_entries_touched_at ON memory_entries(touched_at);
`

// Migrate creates the schema. A corrupt database file is reset to empty
// rather than surfaced to the caller.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		if healErr := s.heal(ctx); healErr != nil {
			return eris.Wrap(healErr, "memory: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// heal recreates the backing file from empty. Used when the persisted state
// is unreadable; memory is advisory, losing it only costs re-learning.
func (s *SQLiteStore) heal(ctx context.Context) error {
	zap.L().Warn("memory: sqlite store unreadable, resetting to empty", zap.String("path", s.path))
	_ = s.db.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "memory: remove corrupt store")
	}
	if err := s.open(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "memory: re-migrate after heal")
}

func (s *SQLiteStore) GetAliases(ctx context.Context, submitterID string) ([]model.MemoryEntry, error) {
	entries, err := s.queryAliases(ctx, bucketKey(submitterID))
	if err != nil {
		// Read-time corruption self-heals to an empty store.
		if healErr := s.heal(ctx); healErr != nil {
			return nil, eris.Wrap(healErr, "memory: get aliases")
		}
		return nil, nil
	}
	return entries, nil
}

func (s *SQLiteStore) queryAliases(ctx context.Context, bucket string) ([]model.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alias, field, confidence, seen FROM memory_entries
		 WHERE bucket = ? ORDER BY touched_at DESC`,
		bucket,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MemoryEntry
	for rows.Next() {
		var e model.MemoryEntry
		if err := rows.Scan(&e.Alias, &e.Field, &e.Confidence, &e.Seen); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Remember(ctx context.Context, submitterID, alias string, field model.TargetField, confidence float64) error {
	if alias == "" || field == "" {
		return nil
	}
	bucket := bucketKey(submitterID)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (id, bucket, alias, field, confidence, seen, created_at, touched_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT (bucket, alias, field) DO UPDATE SET
			seen       = memory_entries.seen + 1,
			confidence = (memory_entries.confidence * memory_entries.seen + excluded.confidence) / (memory_entries.seen + 1),
			touched_at = excluded.touched_at`,
		uuid.New().String(), bucket, alias, string(field), confidence, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "memory: remember")
	}

	// Enforce the per-bucket cap, evicting least-recently-touched entries.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM memory_entries WHERE bucket = ? AND id NOT IN (
			SELECT id FROM memory_entries WHERE bucket = ?
			ORDER BY touched_at DESC, created_at DESC LIMIT ?
		)`,
		bucket, bucket, s.bucketCap,
	)
	return eris.Wrap(err, "memory: enforce bucket cap")
}
