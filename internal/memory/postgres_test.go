package memory

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teklifbul/intake/internal/model"
)

func TestPostgres_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS memory_entries").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresFromPool(mock, 0)
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Remember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO memory_entries").
		WithArgs(pgxmock.AnyArg(), "ops-1", "Miktar", "qty", 0.8, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM memory_entries").
		WithArgs("ops-1", DefaultBucketCap).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := NewPostgresFromPool(mock, 0)
	require.NoError(t, s.Remember(context.Background(), "ops-1", "Miktar", model.FieldQty, 0.8))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RememberGenericBucket(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO memory_entries").
		WithArgs(pgxmock.AnyArg(), GenericBucket, "Adet", "qty", 0.7, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM memory_entries").
		WithArgs(GenericBucket, DefaultBucketCap).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := NewPostgresFromPool(mock, 0)
	require.NoError(t, s.Remember(context.Background(), "", "Adet", model.FieldQty, 0.7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetAliases(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"alias", "field", "confidence", "seen"}).
		AddRow("Miktar", model.FieldQty, 0.8, 3).
		AddRow("B.Fiyat", model.FieldUnitPriceExcl, 0.6, 1)
	mock.ExpectQuery("SELECT alias, field, confidence, seen FROM memory_entries").
		WithArgs("ops-1").
		WillReturnRows(rows)

	s := NewPostgresFromPool(mock, 0)
	entries, err := s.GetAliases(context.Background(), "ops-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Miktar", entries[0].Alias)
	assert.Equal(t, model.FieldQty, entries[0].Field)
	assert.Equal(t, 3, entries[0].Seen)
	assert.Equal(t, "B.Fiyat", entries[1].Alias)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_IgnoresEmptyAliasOrField(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresFromPool(mock, 0)
	require.NoError(t, s.Remember(context.Background(), "ops-1", "", model.FieldQty, 0.5))
	require.NoError(t, s.Remember(context.Background(), "ops-1", "Miktar", "", 0.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
