package service

import (
	"context"
	"database/sql"
	"log"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// PointService manages user point balances under optimistic concurrency:
// every save carries a version check, and a mismatch surfaces as
// ConcurrencyConflict for the caller to handle. Conflicts are never
// retried here — masking them would hide genuine double-spend attempts.
type PointService struct {
	db     *sql.DB
	points PointStore
}

// NewPointService wires the point ledger.
func NewPointService(db *sql.DB, points PointStore) *PointService {
	return &PointService{db: db, points: points}
}

// BalanceResult reports a user's balance.
type BalanceResult struct {
	UserID  uint64
	Balance int64
}

// Charge adds amount to the user's balance, creating the balance row on
// first charge. The external payment gateway step is mocked and always
// succeeds, as in the original billing integration.
func (s *PointService) Charge(ctx context.Context, userID uint64, amount int64) (*BalanceResult, error) {
	if userID == 0 || amount <= 0 {
		return nil, apperr.ErrInvalidArgument
	}
	if !s.mockGatewayCharge(userID, amount) {
		return nil, apperr.ErrInvalidArgument
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

	point, err := s.points.GetTx(ctx, tx, userID)
	if err == sql.ErrNoRows {
		point = model.NewPoint(userID)
		if err := point.Charge(amount); err != nil {
			return nil, err
		}
		if err := s.points.CreateTx(ctx, tx, point); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		if err := point.Charge(amount); err != nil {
			return nil, err
		}
		if err := s.points.SaveTx(ctx, tx, point); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	log.Printf("point: charged userId=%d amount=%d balance=%d", userID, amount, point.Balance)
	return &BalanceResult{UserID: userID, Balance: point.Balance}, nil
}

// Get returns the user's balance; a user with no balance row has zero.
func (s *PointService) Get(ctx context.Context, userID uint64) (*BalanceResult, error) {
	if userID == 0 {
		return nil, apperr.ErrInvalidArgument
	}
	point, err := s.points.Get(ctx, userID)
	if err == sql.ErrNoRows {
		return &BalanceResult{UserID: userID, Balance: 0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &BalanceResult{UserID: userID, Balance: point.Balance}, nil
}

// mockGatewayCharge stands in for the payment gateway call; it always
// succeeds.
func (s *PointService) mockGatewayCharge(userID uint64, amount int64) bool {
	log.Printf("point: mock gateway charge userId=%d amount=%d", userID, amount)
	return true
}
