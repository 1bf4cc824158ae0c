package model

import "time"

// PaymentStatus enumerates payment states. Payments are written once,
// already COMPLETED; there is no separate authorization step in this flow.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
)

// Payment records a completed debit against a reservation. It is the
// durable audit record; the queue-store token bookkeeping that follows it
// is driven by the payment-completed event, not by this row.
//
// Fields:
//
//	ID            – primary key identifier.
//	ReservationID – reservation this payment confirms.
//	UserID        – paying user.
//	Amount        – amount debited, in points.
//	Status        – always COMPLETED today.
//	CreatedAt     – payment timestamp.
type Payment struct {
	ID            uint64        // payments.id
	ReservationID uint64        // payments.reservation_id
	UserID        uint64        // payments.user_id
	Amount        int64         // payments.amount
	Status        PaymentStatus // payments.status
	CreatedAt     time.Time     // payments.created_at
}

// NewPayment creates a COMPLETED payment record for the reservation.
func NewPayment(reservationID, userID uint64, amount int64) *Payment {
	return &Payment{
		ReservationID: reservationID,
		UserID:        userID,
		Amount:        amount,
		Status:        PaymentCompleted,
		CreatedAt:     time.Now().UTC(),
	}
}
