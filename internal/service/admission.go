// Package service implements the booking core: admission control over the
// ranked queue, the locked reservation flow, payment confirmation with the
// transactional outbox, the point ledger and the outbox relay. Services
// receive their collaborators and tunables at construction; nothing reads
// ambient configuration.
package service

import (
	"context"
	"log"
	"time"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
	"concertgate/internal/repository"
)

// AdmissionConfig carries the admission controller's tunables.
type AdmissionConfig struct {
	Capacity           int           // max ACTIVE tokens per concert
	TokenTTL           time.Duration // token lifetime from issue
	WaitSecondsPerUser int           // estimated processing seconds per waiting user
}

// AdmissionService is the single choke point in front of the booking flow:
// it issues queue tokens, promotes waiting ones as capacity frees up and
// validates the token on every downstream call. The token store is the
// sole source of truth for rank; this service is the sole mutator of
// token status.
type AdmissionService struct {
	store repository.TokenStore
	cfg   AdmissionConfig
}

// NewAdmissionService constructs an AdmissionService over the given store.
func NewAdmissionService(store repository.TokenStore, cfg AdmissionConfig) *AdmissionService {
	return &AdmissionService{store: store, cfg: cfg}
}

// IssueResult is the outcome of IssueToken and GetStatus.
type IssueResult struct {
	Token                string
	Status               model.TokenStatus
	Rank                 int64
	EstimatedWaitSeconds int64
}

// IssueToken creates a token for the user in the concert's queue. When the
// active set is below capacity the token activates immediately (rank 0,
// wait 0); otherwise it joins the waiting set and its 1-indexed rank is
// read back from the store. The estimated wait is rank times a fixed
// per-user processing time — a product heuristic, not a promise.
func (s *AdmissionService) IssueToken(ctx context.Context, userID, concertID uint64) (*IssueResult, error) {
	if userID == 0 || concertID == 0 {
		return nil, apperr.ErrInvalidArgument
	}

	activeCount, err := s.store.CountActive(ctx, concertID)
	if err != nil {
		return nil, err
	}

	token := model.NewQueueToken(userID, concertID, s.cfg.TokenTTL)
	if activeCount < int64(s.cfg.Capacity) {
		if err := token.Activate(); err != nil {
			return nil, err
		}
	}
	if err := s.store.Save(ctx, token); err != nil {
		return nil, err
	}

	var rank int64
	if token.Status == model.TokenWaiting {
		rank = s.waitingRank(ctx, token.Token, concertID)
	}

	return &IssueResult{
		Token:                token.Token,
		Status:               token.Status,
		Rank:                 rank,
		EstimatedWaitSeconds: rank * int64(s.cfg.WaitSecondsPerUser),
	}, nil
}

// Promote moves waiting tokens to ACTIVE for every concert with a
// non-empty waiting set, lowest rank first, until each concert's active
// set reaches capacity. Returns the total promoted. Safe to run
// concurrently with IssueToken and with itself across instances: every
// set mutation is atomic at the store, so a duplicate run converges.
func (s *AdmissionService) Promote(ctx context.Context) (int, error) {
	concertIDs, err := s.store.ConcertIDsWithWaiting(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, concertID := range concertIDs {
		activeCount, err := s.store.CountActive(ctx, concertID)
		if err != nil {
			return total, err
		}
		slots := s.cfg.Capacity - int(activeCount)
		if slots <= 0 {
			continue
		}

		waiting, err := s.store.TopWaiting(ctx, concertID, slots)
		if err != nil {
			return total, err
		}
		for _, token := range waiting {
			if err := token.Activate(); err != nil {
				// Another instance already promoted it; converged.
				continue
			}
			if err := s.store.Save(ctx, token); err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}

// Validate checks that the token exists, is ACTIVE and has not expired.
// Every booking operation passes through here before touching a seat.
func (s *AdmissionService) Validate(ctx context.Context, token string) (*model.QueueToken, error) {
	if token == "" {
		return nil, apperr.ErrTokenNotFound
	}
	t, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TokenActive {
		return nil, apperr.ErrTokenNotActive
	}
	if t.IsExpired() {
		return nil, apperr.ErrTokenExpired
	}
	return t, nil
}

// GetStatus reports the token's current state. ACTIVE and EXPIRED tokens
// report rank 0; a WAITING token re-reads its live rank from the store,
// since promotion continuously changes it.
func (s *AdmissionService) GetStatus(ctx context.Context, token string) (*IssueResult, error) {
	if token == "" {
		return nil, apperr.ErrTokenNotFound
	}
	t, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	res := &IssueResult{Token: t.Token, Status: t.Status}
	if t.Status == model.TokenWaiting {
		res.Rank = s.waitingRank(ctx, token, t.ConcertID)
		res.EstimatedWaitSeconds = res.Rank * int64(s.cfg.WaitSecondsPerUser)
	}
	return res, nil
}

// Expire terminates a token explicitly. Invoked by the payment-completed
// consumer rather than the booking caller, which decouples booking
// completion from queue bookkeeping. Idempotent: expiring an EXPIRED
// token saves the same state again.
func (s *AdmissionService) Expire(ctx context.Context, token string) error {
	t, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	t.Expire()
	return s.store.Save(ctx, t)
}

// waitingRank converts the store's 0-indexed rank to the 1-indexed rank
// reported to clients. A token that slipped out of the waiting set between
// lookups (promotion in flight) reports rank 1, the most optimistic answer.
func (s *AdmissionService) waitingRank(ctx context.Context, token string, concertID uint64) int64 {
	rank, found, err := s.store.Rank(ctx, token, concertID)
	if err != nil {
		log.Printf("admission: rank lookup for %s failed: %v", token, err)
		return 1
	}
	if !found {
		return 1
	}
	return rank + 1
}
