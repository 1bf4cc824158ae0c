package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

func pointColumns() []string {
	return []string{"id", "user_id", "balance", "version", "created_at", "updated_at"}
}

func TestPointRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPointRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM points WHERE user_id = ?")).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(pointColumns()).AddRow(1, 42, 5000, 3, now, now))

	p, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.Balance)
	assert.Equal(t, int64(3), p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepoGetPassesThroughNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPointRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM points WHERE user_id = ?")).
		WithArgs(uint64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepoSaveTxBumpsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPointRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE points SET balance = ?, version = version + 1")).
		WithArgs(int64(4000), uint64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	p := &model.Point{ID: 1, UserID: 42, Balance: 4000, Version: 3}
	require.NoError(t, repo.SaveTx(context.Background(), tx, p))
	assert.Equal(t, int64(4), p.Version)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepoSaveTxVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPointRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE points SET balance = ?, version = version + 1")).
		WithArgs(int64(4000), uint64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	p := &model.Point{ID: 1, UserID: 42, Balance: 4000, Version: 3}
	err = repo.SaveTx(context.Background(), tx, p)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	assert.Equal(t, int64(3), p.Version)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepoCreateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPointRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO points (user_id, balance, version, created_at, updated_at)")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	p := model.NewPoint(42)
	require.NoError(t, p.Charge(1000))
	require.NoError(t, repo.CreateTx(context.Background(), tx, p))
	assert.Equal(t, uint64(7), p.ID)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointRepoCreateTxDuplicateUserIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPointRepo(db)

	// Two first-ever charges racing on the unique user_id index: the
	// loser must see a declared conflict, not the raw driver error.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO points (user_id, balance, version, created_at, updated_at)")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '42' for key 'points.user_id'"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	p := model.NewPoint(42)
	require.NoError(t, p.Charge(1000))
	err = repo.CreateTx(context.Background(), tx, p)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
