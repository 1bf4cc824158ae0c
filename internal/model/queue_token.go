package model

import (
	"time"

	"github.com/google/uuid"

	"concertgate/internal/apperr"
)

// TokenStatus enumerates the lifecycle states of a queue token. A token is
// WAITING or ACTIVE, never both: the queue store keeps it in exactly one of
// the two per-concert sets, and EXPIRED tokens are removed from both.
type TokenStatus string

const (
	TokenWaiting TokenStatus = "WAITING"
	TokenActive  TokenStatus = "ACTIVE"
	TokenExpired TokenStatus = "EXPIRED"
)

// QueueToken is a user's admission credential for one concert's booking
// flow. The token string is opaque to clients and passed back on every
// subsequent call. Score is the issue timestamp in epoch milliseconds and
// drives FIFO ordering in the waiting set.
//
// Fields:
//
//	Token     – opaque credential (UUID), primary identity.
//	UserID    – holder of the token.
//	ConcertID – resource group the token admits into.
//	Status    – WAITING, ACTIVE or EXPIRED.
//	Score     – admission rank score (epoch millis at issue).
//	ExpiresAt – hard expiry; an ACTIVE token past this is invalid.
//	CreatedAt – issue timestamp.
type QueueToken struct {
	Token     string
	UserID    uint64
	ConcertID uint64
	Status    TokenStatus
	Score     int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewQueueToken issues a fresh WAITING token for the given user and concert.
// The caller decides whether to activate it immediately based on capacity.
func NewQueueToken(userID, concertID uint64, ttl time.Duration) *QueueToken {
	now := time.Now().UTC()
	return &QueueToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ConcertID: concertID,
		Status:    TokenWaiting,
		Score:     now.UnixMilli(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Activate promotes a WAITING token to ACTIVE. Promoting anything else is a
// programming error upstream and reported as a conflict.
func (t *QueueToken) Activate() error {
	if t.Status != TokenWaiting {
		return apperr.ErrTokenNotActive
	}
	t.Status = TokenActive
	return nil
}

// Expire terminates the token. Valid from any state; EXPIRED is terminal.
func (t *QueueToken) Expire() {
	t.Status = TokenExpired
}

// IsExpired reports whether the token's hard expiry has passed or it has
// been explicitly expired.
func (t *QueueToken) IsExpired() bool {
	return t.Status == TokenExpired || time.Now().UTC().After(t.ExpiresAt)
}

// IsValid reports whether the token may be used for booking calls: it must
// be ACTIVE and not past its expiry.
func (t *QueueToken) IsValid() bool {
	return t.Status == TokenActive && !t.IsExpired()
}
