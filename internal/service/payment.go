package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"concertgate/internal/apperr"
	"concertgate/internal/event"
	"concertgate/internal/model"
)

// PaymentService confirms a reservation by payment. Everything happens in
// one transaction under a pessimistic read-lock on the reservation row:
// the point debit, the payment record, the PENDING→CONFIRMED and
// TEMP_RESERVED→RESERVED transitions and the outbox append. The token is
// expired later by the payment-completed consumer, never here.
type PaymentService struct {
	db           *sql.DB
	tokens       TokenValidator
	reservations ReservationStore
	seats        SeatStore
	points       PointStore
	payments     PaymentStore
	outbox       OutboxAppender
	cache        SeatCacheRefresher // optional
}

// NewPaymentService wires the payment confirmation flow.
func NewPaymentService(db *sql.DB, tokens TokenValidator, reservations ReservationStore, seats SeatStore,
	points PointStore, payments PaymentStore, outbox OutboxAppender, cache SeatCacheRefresher) *PaymentService {
	return &PaymentService{
		db:           db,
		tokens:       tokens,
		reservations: reservations,
		seats:        seats,
		points:       points,
		payments:     payments,
		outbox:       outbox,
		cache:        cache,
	}
}

// PaymentResult is the outcome of a successful Confirm.
type PaymentResult struct {
	PaymentID uint64
	Status    model.PaymentStatus
	Amount    int64
	PaidAt    time.Time
}

// Confirm processes payment for a PENDING reservation. The FOR UPDATE read
// on the reservation row serializes double confirmation and keeps the
// expiry sweep off the row while the transaction is open. A version
// conflict on the point debit surfaces as ConcurrencyConflict to the
// caller — retrying is the caller's decision, so a genuine double spend
// is never masked.
func (s *PaymentService) Confirm(ctx context.Context, token string, userID, reservationID uint64) (*PaymentResult, error) {
	if _, err := s.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.reservations.GetForUpdateTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, apperr.ErrReservationNotOwned
	}
	if err := res.Confirm(); err != nil {
		return nil, err
	}

	seat, err := s.seats.GetTx(ctx, tx, res.SeatID)
	if err != nil {
		return nil, err
	}

	if err := s.debitTx(ctx, tx, userID, seat.Price); err != nil {
		return nil, err
	}

	payment := model.NewPayment(reservationID, userID, seat.Price)
	if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
		return nil, err
	}

	if err := s.reservations.UpdateStatusTx(ctx, tx, res.ID, model.ReservationPending, model.ReservationConfirmed); err != nil {
		return nil, err
	}
	if err := seat.Confirm(); err != nil {
		return nil, err
	}
	if err := s.seats.UpdateStatusTx(ctx, tx, seat); err != nil {
		return nil, err
	}

	if err := s.appendOutboxTx(ctx, tx, payment, res, token); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if s.cache != nil {
		s.cache.RefreshSeats(ctx, res.ScheduleID)
	}
	log.Printf("payment: completed paymentId=%d userId=%d amount=%d", payment.ID, userID, payment.Amount)

	return &PaymentResult{
		PaymentID: payment.ID,
		Status:    payment.Status,
		Amount:    payment.Amount,
		PaidAt:    payment.CreatedAt,
	}, nil
}

// debitTx subtracts the seat price from the user's balance under the
// optimistic version check. A user without a balance row has balance
// zero, which fails as insufficient.
func (s *PaymentService) debitTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	point, err := s.points.GetTx(ctx, tx, userID)
	if err == sql.ErrNoRows {
		return apperr.ErrInsufficientBalance
	}
	if err != nil {
		return err
	}
	if err := point.Use(amount); err != nil {
		return err
	}
	return s.points.SaveTx(ctx, tx, point)
}

func (s *PaymentService) appendOutboxTx(ctx context.Context, tx *sql.Tx, payment *model.Payment, res *model.Reservation, token string) error {
	payload, err := json.Marshal(event.PaymentCompleted{
		PaymentID:     payment.ID,
		ReservationID: res.ID,
		UserID:        payment.UserID,
		Token:         token,
		Amount:        payment.Amount,
		PaidAt:        payment.CreatedAt,
	})
	if err != nil {
		return err
	}
	ev := model.NewOutboxEvent(
		event.PaymentCompletedAggregate,
		strconv.FormatUint(payment.ID, 10),
		event.PaymentCompletedType,
		event.PaymentCompletedTopic,
		payload,
	)
	return s.outbox.CreateTx(ctx, tx, ev)
}
