package model

import (
	"time"

	"concertgate/internal/apperr"
)

// MaxPointBalance is the upper bound a balance may reach through charging.
const MaxPointBalance int64 = 1_000_000

// Point is a user's prepaid balance. Charge and Use apply bounded
// arithmetic; persistence guards every save with an optimistic version
// check so concurrent mutation raises a conflict rather than silently
// losing an update.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – balance owner, unique.
//	Balance   – current balance in points, never negative.
//	Version   – optimistic concurrency counter.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Point struct {
	ID        uint64    // points.id
	UserID    uint64    // points.user_id
	Balance   int64     // points.balance
	Version   int64     // points.version
	CreatedAt time.Time // points.created_at
	UpdatedAt time.Time // points.updated_at
}

// NewPoint creates a zero-balance Point for the user.
func NewPoint(userID uint64) *Point {
	now := time.Now().UTC()
	return &Point{UserID: userID, Balance: 0, CreatedAt: now, UpdatedAt: now}
}

// Charge adds amount to the balance, bounded by MaxPointBalance.
func (p *Point) Charge(amount int64) error {
	if amount <= 0 {
		return apperr.ErrInvalidArgument
	}
	if p.Balance+amount > MaxPointBalance {
		return apperr.ErrPointLimitExceeded
	}
	p.Balance += amount
	return nil
}

// Use subtracts amount from the balance, bounded by the current balance.
func (p *Point) Use(amount int64) error {
	if amount <= 0 {
		return apperr.ErrInvalidArgument
	}
	if p.Balance-amount < 0 {
		return apperr.ErrInsufficientBalance
	}
	p.Balance -= amount
	return nil
}
