// Package repository provides data access for the booking domain: the
// ranked queue token store backed by Redis (with an in-memory alternative),
// and the MySQL repositories for the durable tables. SQL repositories offer
// *Tx methods that run inside a caller-owned transaction; the caller must
// commit or roll back. All timestamps are UTC.
package repository

import (
	"context"

	"concertgate/internal/model"
)

// TokenStore is the capability interface over the ranked queue. Two
// interchangeable strategies implement it: RedisTokenStore for production
// and MemoryTokenStore for single-process deployments and tests.
//
// The store keeps, per concert, a rank-ordered waiting set and an
// unordered active set; a token is a member of at most one of the two.
// All mutations are atomic at the store, which is what makes the
// promotion pass safe to run concurrently with token issue across
// process instances.
type TokenStore interface {
	// Save persists the token and routes its set membership by status:
	// WAITING joins the ranked waiting set, ACTIVE the active set and
	// EXPIRED neither.
	Save(ctx context.Context, t *model.QueueToken) error

	// FindByToken looks a token up by its opaque string. Returns
	// apperr.ErrTokenNotFound when absent.
	FindByToken(ctx context.Context, token string) (*model.QueueToken, error)

	// Rank returns the 0-indexed position of the token in its concert's
	// waiting set, or found=false when the token is not waiting.
	Rank(ctx context.Context, token string, concertID uint64) (rank int64, found bool, err error)

	// CountActive returns the size of the concert's active set.
	CountActive(ctx context.Context, concertID uint64) (int64, error)

	// CountWaiting returns the size of the concert's waiting set.
	CountWaiting(ctx context.Context, concertID uint64) (int64, error)

	// TopWaiting returns up to limit tokens from the head of the waiting
	// set, lowest rank first.
	TopWaiting(ctx context.Context, concertID uint64, limit int) ([]*model.QueueToken, error)

	// ConcertIDsWithWaiting lists the concerts that currently have a
	// non-empty waiting set.
	ConcertIDsWithWaiting(ctx context.Context) ([]uint64, error)
}
