package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SigNoz/storefront-go-app/internal/db"
	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	store := NewSQLStore(db.Wrap(sqlDB, zap.NewNop()), metrics.NewNoop(), Config{TTL: time.Hour})
	t.Cleanup(func() {
		mock.ExpectClose()
		store.Close()
	})
	return store, mock
}

func TestSQLStoreCreate(t *testing.T) {
	store, mock := newSQLStore(t)

	mock.ExpectExec(upsertSessionQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s, err := store.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGet(t *testing.T) {
	store, mock := newSQLStore(t)

	stored := &Session{ID: "abc"}
	stored.Login("tok", "loja")
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	expires := time.Now().Add(time.Hour)

	mock.ExpectQuery(selectSessionQuery).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"data", "expires_at"}).AddRow(data, expires))

	got, err := store.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, got.Authenticated)
	assert.Equal(t, "tok", got.Token)
	assert.True(t, got.ExpiresAt.Equal(expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetMissingAndExpired(t *testing.T) {
	store, mock := newSQLStore(t)

	mock.ExpectQuery(selectSessionQuery).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"data", "expires_at"}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(selectSessionQuery).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"data", "expires_at"}).AddRow([]byte(`{"id":"old"}`), time.Now().Add(-time.Minute)))

	_, err = store.Get(context.Background(), "old")
	assert.ErrorIs(t, err, ErrExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSaveFailure(t *testing.T) {
	store, mock := newSQLStore(t)

	mock.ExpectExec(upsertSessionQuery).
		WithArgs("abc", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), &Session{ID: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreCountAndPrune(t *testing.T) {
	store, mock := newSQLStore(t)

	mock.ExpectQuery(countSessionsQuery).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(purgeSessionsQuery).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(deleteSessionQuery).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	removed, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
