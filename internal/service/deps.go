package service

import (
	"context"
	"database/sql"
	"time"

	"concertgate/internal/model"
)

// The services name their collaborators as small interfaces so each one
// can be exercised in isolation; the repository, lock and event packages
// provide the production implementations.

// TokenValidator gates every booking operation on a live ACTIVE token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*model.QueueToken, error)
}

// Locker serializes conflicting operations on a named resource key.
type Locker interface {
	WithLock(ctx context.Context, key string, wait, lease time.Duration, fn func() error) error
}

// ScheduleStore answers catalog existence checks.
type ScheduleStore interface {
	Exists(ctx context.Context, scheduleID uint64) (bool, error)
}

// SeatStore reads and writes seats inside a caller-owned transaction.
type SeatStore interface {
	GetTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Seat, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, seat *model.Seat) error
}

// ReservationStore reads and writes reservations inside a caller-owned
// transaction.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (*model.Reservation, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, from, to model.ReservationStatus) error
	FindExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.Reservation, error)
}

// PaymentStore appends payment audit rows.
type PaymentStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error
}

// PointStore reads and writes point balances with optimistic versioning.
type PointStore interface {
	Get(ctx context.Context, userID uint64) (*model.Point, error)
	GetTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Point, error)
	CreateTx(ctx context.Context, tx *sql.Tx, p *model.Point) error
	SaveTx(ctx context.Context, tx *sql.Tx, p *model.Point) error
}

// OutboxAppender writes a PENDING outbox record inside the business
// transaction.
type OutboxAppender interface {
	CreateTx(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error
}

// SeatCacheRefresher re-primes the cached seat listing for a schedule
// after a write. Optional; a nil refresher disables write-through.
type SeatCacheRefresher interface {
	RefreshSeats(ctx context.Context, scheduleID uint64)
}
