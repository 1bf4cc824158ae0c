package service

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

func newPointService(t *testing.T, points *memPoints) (*PointService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPointService(db, points), mock, func() { db.Close() }
}

func TestChargeCreatesBalanceOnFirstUse(t *testing.T) {
	points := newMemPoints()
	svc, mock, closeDB := newPointService(t, points)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := svc.Charge(context.Background(), 42, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Balance)
	assert.Equal(t, int64(1000), points.balance(42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeAccumulates(t *testing.T) {
	points := newMemPoints(&model.Point{UserID: 42, Balance: 500})
	svc, mock, closeDB := newPointService(t, points)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := svc.Charge(context.Background(), 42, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeRejectsInvalidAmount(t *testing.T) {
	svc, mock, closeDB := newPointService(t, newMemPoints())
	defer closeDB()

	_, err := svc.Charge(context.Background(), 42, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = svc.Charge(context.Background(), 42, -100)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = svc.Charge(context.Background(), 0, 100)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeEnforcesBalanceCeiling(t *testing.T) {
	points := newMemPoints(&model.Point{UserID: 42, Balance: model.MaxPointBalance - 100})
	svc, mock, closeDB := newPointService(t, points)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectCommit()

	// Exactly up to the ceiling is fine.
	res, err := svc.Charge(context.Background(), 42, 100)
	require.NoError(t, err)
	assert.Equal(t, model.MaxPointBalance, res.Balance)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = svc.Charge(context.Background(), 42, 1)
	assert.ErrorIs(t, err, apperr.ErrPointLimitExceeded)
	assert.Equal(t, model.MaxPointBalance, points.balance(42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeSurfacesVersionConflict(t *testing.T) {
	points := newMemPoints(&model.Point{UserID: 42, Balance: 500})
	points.saveErr = apperr.ErrConcurrencyConflict
	svc, mock, closeDB := newPointService(t, points)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Charge(context.Background(), 42, 100)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	assert.Equal(t, int64(500), points.balance(42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeConcurrentCallersNeverLoseAnUpdate(t *testing.T) {
	const (
		callers = 16
		start   = int64(500)
		amount  = int64(100)
	)
	points := newMemPoints(&model.Point{UserID: 42, Balance: start})
	svc, mock, closeDB := newPointService(t, points)
	defer closeDB()

	// Each caller opens its own transaction; winners commit, version
	// losers roll back. How many land either way is up to the scheduler.
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < callers; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Charge(context.Background(), 42, amount)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes int64
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		// Every failure is a declared conflict, never a silent lost
		// update or an unmapped error.
		assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	}
	assert.GreaterOrEqual(t, successes, int64(1))
	assert.Equal(t, start+amount*successes, points.balance(42))
}

func TestGetBalanceDefaultsToZero(t *testing.T) {
	svc, mock, closeDB := newPointService(t, newMemPoints())
	defer closeDB()

	res, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.UserID)
	assert.Zero(t, res.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBalance(t *testing.T) {
	svc, mock, closeDB := newPointService(t, newMemPoints(&model.Point{UserID: 42, Balance: 777}))
	defer closeDB()

	res, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(777), res.Balance)

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.NoError(t, mock.ExpectationsWereMet())
}
