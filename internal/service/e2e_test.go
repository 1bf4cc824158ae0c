package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concertgate/internal/apperr"
	"concertgate/internal/event"
	"concertgate/internal/model"
	"concertgate/internal/repository"
)

// expiringSender plays the broker consumer inline: every published
// payment-completed payload is handed straight to the token-expiry
// handler, the way the real consumer processes a delivery.
type expiringSender struct {
	expirer event.TokenExpirer
	topics  []string
}

func (s *expiringSender) Publish(_ context.Context, topic string, body []byte) error {
	var ev event.PaymentCompleted
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	if err := event.HandlePaymentCompleted(s.expirer, ev); err != nil {
		return err
	}
	s.topics = append(s.topics, topic)
	return nil
}

// TestFullBookingFlowExpiresQueueToken walks one user through the whole
// pipeline — admission, seat hold, payment, outbox relay, asynchronous
// token expiry — and checks the freed slot admits the next waiting user.
func TestFullBookingFlowExpiresQueueToken(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	admissions := NewAdmissionService(repository.NewMemoryTokenStore(), AdmissionConfig{
		Capacity:           1,
		TokenTTL:           30 * time.Minute,
		WaitSecondsPerUser: 2,
	})

	seats := newMemSeats(availableSeat(7, 10))
	reservations := newMemReservations()
	points := newMemPoints(&model.Point{UserID: 42, Balance: 8000})
	payments := &memPayments{}
	outbox := &fakeOutboxStore{}

	resv := NewReservationService(db, newStubLocker(), admissions,
		&stubSchedules{known: map[uint64]bool{10: true}}, seats, reservations, nil,
		ReservationConfig{Lease: 5 * time.Minute, LockWait: time.Second, LockLease: 3 * time.Second})
	pay := NewPaymentService(db, admissions, reservations, seats, points, payments, outbox, nil)

	sender := &expiringSender{expirer: admissions}
	relay := NewRelayService(outbox, sender, RelayConfig{BatchSize: 100, MaxRetry: 5, Retention: 7 * 24 * time.Hour})

	// First caller is admitted straight away; the second queues behind.
	issued, err := admissions.IssueToken(ctx, 42, 1)
	require.NoError(t, err)
	require.Equal(t, model.TokenActive, issued.Status)

	waiting, err := admissions.IssueToken(ctx, 43, 1)
	require.NoError(t, err)
	require.Equal(t, model.TokenWaiting, waiting.Status)

	mock.ExpectBegin()
	mock.ExpectCommit()
	held, err := resv.Reserve(ctx, issued.Token, 42, 10, 7)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, held.Status)
	assert.Equal(t, model.SeatTempReserved, seats.status(7))

	mock.ExpectBegin()
	mock.ExpectCommit()
	paid, err := pay.Confirm(ctx, issued.Token, 42, held.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, paid.Status)
	assert.Equal(t, int64(5000), paid.Amount)
	assert.Equal(t, int64(3000), points.balance(42))
	assert.Equal(t, model.SeatReserved, seats.status(7))
	assert.Equal(t, model.ReservationConfirmed, reservations.status(held.ReservationID))

	// The relay drains the outbox; the inline consumer expires the token.
	published, err := relay.Relay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Equal(t, []string{event.PaymentCompletedTopic}, sender.topics)

	_, err = admissions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, apperr.ErrTokenNotActive)

	// The freed slot admits the waiting caller.
	promoted, err := admissions.Promote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
	status, err := admissions.GetStatus(ctx, waiting.Token)
	require.NoError(t, err)
	assert.Equal(t, model.TokenActive, status.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}
