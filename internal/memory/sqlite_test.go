package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teklifbul/intake/internal/model"
)

func newTestSQLite(t *testing.T, bucketCap int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "memory.db"), bucketCap)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RememberAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	require.NoError(t, s.Remember(ctx, "ops-1", "Miktar", model.FieldQty, 0.8))

	entries, err := s.GetAliases(ctx, "ops-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Miktar", entries[0].Alias)
	assert.Equal(t, model.FieldQty, entries[0].Field)
	assert.Equal(t, 1, entries[0].Seen)
	assert.InDelta(t, 0.8, entries[0].Confidence, 1e-9)

	// Other submitters see nothing.
	entries, err = s.GetAliases(ctx, "ops-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLite_RunningMean(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	for _, conf := range []float64{0.4, 0.6, 0.8} {
		require.NoError(t, s.Remember(ctx, "ops-1", "Miktar", model.FieldQty, conf))
	}

	entries, err := s.GetAliases(ctx, "ops-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Seen)
	assert.InDelta(t, 0.6, entries[0].Confidence, 1e-9)
}

func TestSQLite_GenericBucket(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	require.NoError(t, s.Remember(ctx, "", "Adet", model.FieldQty, 0.7))

	entries, err := s.GetAliases(ctx, "  ")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Adet", entries[0].Alias)
}

func TestSQLite_BucketCap(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 3)

	for _, alias := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Remember(ctx, "ops-1", alias, model.FieldQty, 0.5))
		time.Sleep(5 * time.Millisecond) // distinct touched_at for eviction order
	}

	entries, err := s.GetAliases(ctx, "ops-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Most recently touched survive, newest first.
	assert.Equal(t, "e", entries[0].Alias)
	assert.Equal(t, "d", entries[1].Alias)
	assert.Equal(t, "c", entries[2].Alias)
}

func TestSQLite_SelfHealsCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database at all"), 0o600))

	s, err := NewSQLite(path, 0)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	entries, err := s.GetAliases(ctx, "ops-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The reset store accepts writes again.
	require.NoError(t, s.Remember(ctx, "ops-1", "Miktar", model.FieldQty, 0.8))
	entries, err = s.GetAliases(ctx, "ops-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLite_IgnoresEmptyAliasOrField(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	require.NoError(t, s.Remember(ctx, "ops-1", "", model.FieldQty, 0.5))
	require.NoError(t, s.Remember(ctx, "ops-1", "Miktar", "", 0.5))

	entries, err := s.GetAliases(ctx, "ops-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
