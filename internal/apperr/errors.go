// Package apperr defines the stable, machine-readable errors shared by the
// service and repository layers. Handlers translate these into HTTP
// responses; sentinel comparison via errors.Is lets callers distinguish
// "try a different seat" from "your token expired" without parsing
// messages. Raw infrastructure errors must never cross the handler
// boundary — wrap or replace them with one of these.
package apperr

// Error is a domain error with a stable code. The code is part of the API
// contract and must not change once clients depend on it.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Validation errors: rejected immediately, retrying is pointless.
var (
	ErrInvalidArgument = &Error{"INVALID_ARGUMENT", "missing or malformed input"}
)

// Not-found errors: terminal, surfaced to the caller as-is.
var (
	ErrTokenNotFound       = &Error{"TOKEN_NOT_FOUND", "queue token not found"}
	ErrConcertNotFound     = &Error{"CONCERT_NOT_FOUND", "concert not found"}
	ErrScheduleNotFound    = &Error{"SCHEDULE_NOT_FOUND", "concert schedule not found"}
	ErrSeatNotFound        = &Error{"SEAT_NOT_FOUND", "seat not found"}
	ErrReservationNotFound = &Error{"RESERVATION_NOT_FOUND", "reservation not found"}
)

// State-conflict errors: terminal for this attempt. The caller may re-check
// state and retry the whole operation; nothing retries transparently.
var (
	ErrTokenNotActive        = &Error{"TOKEN_NOT_ACTIVE", "queue token is not active"}
	ErrTokenExpired          = &Error{"TOKEN_EXPIRED", "queue token has expired"}
	ErrSeatNotAvailable      = &Error{"SEAT_NOT_AVAILABLE", "seat is not available for reservation"}
	ErrReservationNotPending = &Error{"RESERVATION_NOT_PENDING", "only pending reservations can be confirmed"}
	ErrReservationExpired    = &Error{"RESERVATION_EXPIRED", "reservation lease has elapsed"}
	ErrReservationNotOwned   = &Error{"RESERVATION_NOT_OWNED", "reservation belongs to another user"}
	ErrInsufficientBalance   = &Error{"INSUFFICIENT_BALANCE", "point balance is insufficient"}
	ErrPointLimitExceeded    = &Error{"POINT_LIMIT_EXCEEDED", "point balance would exceed the maximum"}
	ErrConcurrencyConflict   = &Error{"CONCURRENCY_CONFLICT", "conflicting concurrent update, please retry"}
)

// Resource-contention errors: safe to retry later.
var (
	ErrLockAcquisitionFailed = &Error{"LOCK_ACQUISITION_FAILED", "could not acquire resource lock in time"}
)
