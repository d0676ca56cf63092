package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"research/pkg/domain"
	"research/pkg/storage"
	"research/pkg/storage/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPgSQL_Begin_SuccessAndAlreadyInTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	txStorage, err := pg.Begin(ctx)
	require.NoError(t, err)
	require.NotNil(t, txStorage)

	inner, ok := txStorage.(*postgres.PgSQL)
	require.True(t, ok)
	_, isTx := inner.DB.(*sql.Tx)
	require.True(t, isTx)

	_, err = inner.Begin(ctx)
	require.ErrorIs(t, err, storage.ErrAlreadyInTx)

	require.NoError(t, inner.Rollback())
}

func TestPgSQL_CommitAndRollback_NotInTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	require.ErrorIs(t, pg.Commit(), storage.ErrNotInTx)
	require.ErrorIs(t, pg.Rollback(), storage.ErrNotInTx)
}

func TestPgSQL_WithTx_CommitAndRollback(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := domain.UserID(uuid.New())

	// success commits the inserted row
	err := pg.WithTx(ctx, func(s storage.AllStorage) error {
		_, e := s.StoreResearches(ctx, newResearch(userID, "committed"))

		return e //nolint: wrapcheck
	})
	require.NoError(t, err)

	page, err := pg.UserResearches(ctx, userID, "", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Researches, 1)

	// callback errors roll the insert back
	err = pg.WithTx(ctx, func(s storage.AllStorage) error {
		if _, e := s.StoreResearches(ctx, newResearch(userID, "rolled back")); e != nil {
			return e //nolint: wrapcheck
		}

		return errors.New("boom")
	})
	require.Error(t, err)

	page, err = pg.UserResearches(ctx, userID, "", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Researches, 1)
}
