package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concertgate/internal/apperr"
)

func TestQueueTokenLifecycle(t *testing.T) {
	tok := NewQueueToken(1, 100, 30*time.Minute)
	assert.Equal(t, TokenWaiting, tok.Status)
	assert.NotEmpty(t, tok.Token)
	assert.False(t, tok.IsExpired())

	require.NoError(t, tok.Activate())
	assert.Equal(t, TokenActive, tok.Status)
	assert.True(t, tok.IsValid())

	// Only WAITING tokens can activate.
	assert.ErrorIs(t, tok.Activate(), apperr.ErrTokenNotActive)

	tok.Expire()
	assert.Equal(t, TokenExpired, tok.Status)
	assert.False(t, tok.IsValid())
}

func TestQueueTokenTTL(t *testing.T) {
	tok := NewQueueToken(1, 100, time.Minute)
	require.NoError(t, tok.Activate())
	tok.ExpiresAt = time.Now().UTC().Add(-time.Second)
	assert.True(t, tok.IsExpired())
	assert.False(t, tok.IsValid())
}

func TestSeatTransitions(t *testing.T) {
	s := &Seat{ID: 1, Status: SeatAvailable}
	assert.True(t, s.IsAvailable())

	require.NoError(t, s.Reserve())
	assert.Equal(t, SeatTempReserved, s.Status)
	assert.ErrorIs(t, s.Reserve(), apperr.ErrSeatNotAvailable)

	require.NoError(t, s.Confirm())
	assert.Equal(t, SeatReserved, s.Status)
	assert.ErrorIs(t, s.Confirm(), apperr.ErrSeatNotAvailable)

	s.Release()
	assert.Equal(t, SeatAvailable, s.Status)
}

func TestSeatConfirmRequiresHold(t *testing.T) {
	s := &Seat{ID: 1, Status: SeatAvailable}
	assert.ErrorIs(t, s.Confirm(), apperr.ErrSeatNotAvailable)
}

func TestReservationConfirm(t *testing.T) {
	r := NewReservation(1, 10, 7, 5*time.Minute)
	assert.Equal(t, ReservationPending, r.Status)
	assert.False(t, r.IsExpired())

	require.NoError(t, r.Confirm())
	assert.Equal(t, ReservationConfirmed, r.Status)
	assert.ErrorIs(t, r.Confirm(), apperr.ErrReservationNotPending)
}

func TestReservationConfirmAfterLease(t *testing.T) {
	r := NewReservation(1, 10, 7, 5*time.Minute)
	r.ExpiresAt = time.Now().UTC().Add(-time.Second)
	assert.True(t, r.IsExpired())
	assert.ErrorIs(t, r.Confirm(), apperr.ErrReservationExpired)
	assert.Equal(t, ReservationPending, r.Status)
}

func TestReservationTerminalStates(t *testing.T) {
	r := NewReservation(1, 10, 7, 5*time.Minute)
	r.Cancel()
	assert.Equal(t, ReservationCancelled, r.Status)

	r = NewReservation(1, 10, 7, 5*time.Minute)
	r.Expire()
	assert.Equal(t, ReservationExpired, r.Status)
	assert.ErrorIs(t, r.Confirm(), apperr.ErrReservationNotPending)
}

func TestPointChargeAndUse(t *testing.T) {
	p := NewPoint(42)
	assert.Zero(t, p.Balance)

	require.NoError(t, p.Charge(1000))
	assert.Equal(t, int64(1000), p.Balance)

	assert.ErrorIs(t, p.Charge(0), apperr.ErrInvalidArgument)
	assert.ErrorIs(t, p.Charge(-5), apperr.ErrInvalidArgument)

	require.NoError(t, p.Use(400))
	assert.Equal(t, int64(600), p.Balance)

	assert.ErrorIs(t, p.Use(601), apperr.ErrInsufficientBalance)
	assert.Equal(t, int64(600), p.Balance)
}

func TestPointBalanceCeiling(t *testing.T) {
	p := NewPoint(42)
	require.NoError(t, p.Charge(MaxPointBalance))
	assert.ErrorIs(t, p.Charge(1), apperr.ErrPointLimitExceeded)
	assert.Equal(t, MaxPointBalance, p.Balance)
}
