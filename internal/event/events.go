// Package event defines the domain event payloads exchanged over the
// message broker, the publisher the outbox relay sends through, and the
// consumer that ties payment completion back to queue-token expiry.
package event

import "time"

// PaymentCompletedTopic is the broker queue payment-completed events are
// delivered on.
const PaymentCompletedTopic = "payment.completed"

// PaymentCompletedAggregate and PaymentCompletedType identify the event in
// the outbox table.
const (
	PaymentCompletedAggregate = "Payment"
	PaymentCompletedType      = "PaymentCompleted"
)

// PaymentCompleted is published after a reservation is paid and confirmed.
// It carries the queue token so the consumer can expire it asynchronously;
// booking completion never blocks on queue bookkeeping. Delivery is
// at-least-once — expiring an already-expired token is a no-op, which is
// what makes redelivery safe.
type PaymentCompleted struct {
	PaymentID     uint64    `json:"payment_id"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	Token         string    `json:"token"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}
