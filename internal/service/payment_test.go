package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concertgate/internal/apperr"
	"concertgate/internal/event"
	"concertgate/internal/model"
)

// memPoints mimics PointRepo's optimistic versioning in memory.
type memPoints struct {
	mu      sync.Mutex
	rows    map[uint64]*model.Point
	saveErr error
}

func newMemPoints(rows ...*model.Point) *memPoints {
	m := &memPoints{rows: make(map[uint64]*model.Point)}
	for _, p := range rows {
		cp := *p
		m.rows[p.UserID] = &cp
	}
	return m
}

func (m *memPoints) Get(_ context.Context, userID uint64) (*model.Point, error) {
	return m.find(userID)
}

func (m *memPoints) GetTx(_ context.Context, _ *sql.Tx, userID uint64) (*model.Point, error) {
	return m.find(userID)
}

func (m *memPoints) find(userID uint64) (*model.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memPoints) CreateTx(_ context.Context, _ *sql.Tx, p *model.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.UserID] = &cp
	return nil
}

func (m *memPoints) SaveTx(_ context.Context, _ *sql.Tx, p *model.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.rows[p.UserID]
	if !ok || stored.Version != p.Version {
		return apperr.ErrConcurrencyConflict
	}
	stored.Balance = p.Balance
	stored.Version++
	p.Version++
	return nil
}

func (m *memPoints) balance(userID uint64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[userID].Balance
}

// memPayments records inserted payment rows.
type memPayments struct {
	mu     sync.Mutex
	nextID uint64
	rows   []model.Payment
}

func (m *memPayments) CreateTx(_ context.Context, _ *sql.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.rows = append(m.rows, *p)
	return nil
}

// memOutbox records appended outbox events.
type memOutbox struct {
	mu     sync.Mutex
	events []model.OutboxEvent
}

func (m *memOutbox) CreateTx(_ context.Context, _ *sql.Tx, ev *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

type paymentFixture struct {
	svc          *PaymentService
	mock         sqlmock.Sqlmock
	seats        *memSeats
	reservations *memReservations
	points       *memPoints
	payments     *memPayments
	outbox       *memOutbox
	cache        *cacheRecorder
	closeDB      func()
}

func newPaymentFixture(t *testing.T, seats *memSeats, reservations *memReservations, points *memPoints) *paymentFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	f := &paymentFixture{
		mock:         mock,
		seats:        seats,
		reservations: reservations,
		points:       points,
		payments:     &memPayments{},
		outbox:       &memOutbox{},
		cache:        &cacheRecorder{},
		closeDB:      func() { db.Close() },
	}
	f.svc = NewPaymentService(db, &stubTokens{}, reservations, seats, points, f.payments, f.outbox, f.cache)
	return f
}

func heldSeat(id, scheduleID uint64, price int64) *model.Seat {
	return &model.Seat{ID: id, ScheduleID: scheduleID, SeatNumber: 1, Price: price, Status: model.SeatTempReserved, Version: 1}
}

func pendingReservation(id, userID, scheduleID, seatID uint64) *model.Reservation {
	return &model.Reservation{
		ID:         id,
		UserID:     userID,
		ScheduleID: scheduleID,
		SeatID:     seatID,
		Status:     model.ReservationPending,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(5 * time.Minute),
	}
}

func TestConfirmCompletesBooking(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	reservations := newMemReservations(pendingReservation(1, 42, 10, 7))
	points := newMemPoints(&model.Point{UserID: 42, Balance: 8000})
	f := newPaymentFixture(t, seats, reservations, points)
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Confirm(context.Background(), "tok", 42, 1)
	require.NoError(t, err)
	assert.NotZero(t, res.PaymentID)
	assert.Equal(t, model.PaymentCompleted, res.Status)
	assert.Equal(t, int64(5000), res.Amount)

	assert.Equal(t, int64(3000), points.balance(42))
	assert.Equal(t, model.ReservationConfirmed, reservations.status(1))
	assert.Equal(t, model.SeatReserved, seats.status(7))
	assert.Equal(t, []uint64{10}, f.cache.refreshed)

	require.Len(t, f.outbox.events, 1)
	ev := f.outbox.events[0]
	assert.Equal(t, event.PaymentCompletedTopic, ev.Topic)
	assert.Equal(t, model.OutboxPending, ev.Status)

	var payload event.PaymentCompleted
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, res.PaymentID, payload.PaymentID)
	assert.Equal(t, uint64(42), payload.UserID)
	assert.Equal(t, "tok", payload.Token)
	assert.Equal(t, int64(5000), payload.Amount)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmRejectsForeignReservation(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	reservations := newMemReservations(pendingReservation(1, 42, 10, 7))
	points := newMemPoints(&model.Point{UserID: 99, Balance: 8000})
	f := newPaymentFixture(t, seats, reservations, points)
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 99, 1)
	assert.ErrorIs(t, err, apperr.ErrReservationNotOwned)

	assert.Equal(t, int64(8000), points.balance(99))
	assert.Equal(t, model.ReservationPending, reservations.status(1))
	assert.Empty(t, f.outbox.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmRejectsExpiredLease(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	stale := pendingReservation(1, 42, 10, 7)
	stale.ExpiresAt = time.Now().UTC().Add(-time.Second)
	reservations := newMemReservations(stale)
	f := newPaymentFixture(t, seats, reservations, newMemPoints(&model.Point{UserID: 42, Balance: 8000}))
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 42, 1)
	assert.ErrorIs(t, err, apperr.ErrReservationExpired)
	assert.Equal(t, model.ReservationPending, reservations.status(1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmRejectsDoublePayment(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	paid := pendingReservation(1, 42, 10, 7)
	paid.Status = model.ReservationConfirmed
	reservations := newMemReservations(paid)
	f := newPaymentFixture(t, seats, reservations, newMemPoints(&model.Point{UserID: 42, Balance: 8000}))
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 42, 1)
	assert.ErrorIs(t, err, apperr.ErrReservationNotPending)
	assert.Equal(t, int64(8000), f.points.balance(42))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmInsufficientBalance(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	reservations := newMemReservations(pendingReservation(1, 42, 10, 7))
	f := newPaymentFixture(t, seats, reservations, newMemPoints(&model.Point{UserID: 42, Balance: 4999}))
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 42, 1)
	assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)
	assert.Equal(t, model.ReservationPending, reservations.status(1))
	assert.Equal(t, model.SeatTempReserved, seats.status(7))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmWithoutBalanceRow(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	reservations := newMemReservations(pendingReservation(1, 42, 10, 7))
	f := newPaymentFixture(t, seats, reservations, newMemPoints())
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 42, 1)
	assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmSurfacesPointConflict(t *testing.T) {
	seats := newMemSeats(heldSeat(7, 10, 5000))
	reservations := newMemReservations(pendingReservation(1, 42, 10, 7))
	points := newMemPoints(&model.Point{UserID: 42, Balance: 8000})
	points.saveErr = apperr.ErrConcurrencyConflict
	f := newPaymentFixture(t, seats, reservations, points)
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 42, 1)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
	assert.Empty(t, f.outbox.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirmUnknownReservation(t *testing.T) {
	f := newPaymentFixture(t, newMemSeats(), newMemReservations(), newMemPoints())
	defer f.closeDB()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Confirm(context.Background(), "tok", 42, 404)
	assert.ErrorIs(t, err, apperr.ErrReservationNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
