package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// sweepBatchSize bounds how many expired reservations one sweep pass
// reclaims; the next pass picks up the remainder a minute later.
const sweepBatchSize = 500

// ReservationConfig carries the reservation lifecycle tunables.
type ReservationConfig struct {
	Lease     time.Duration // how long a PENDING reservation stays confirmable
	LockWait  time.Duration // max time to block acquiring the seat lock
	LockLease time.Duration // auto-expiry of a held seat lock
}

// ReservationService creates time-boxed seat holds and reclaims expired
// ones. The distributed lock on the seat key, acquired before the
// availability check, is the primary serialization mechanism: of N
// concurrent callers for one seat exactly one sees AVAILABLE.
type ReservationService struct {
	db           *sql.DB
	locker       Locker
	tokens       TokenValidator
	schedules    ScheduleStore
	seats        SeatStore
	reservations ReservationStore
	cache        SeatCacheRefresher // optional
	cfg          ReservationConfig
}

// NewReservationService wires the reservation lifecycle manager.
func NewReservationService(db *sql.DB, locker Locker, tokens TokenValidator, schedules ScheduleStore,
	seats SeatStore, reservations ReservationStore, cache SeatCacheRefresher, cfg ReservationConfig) *ReservationService {
	return &ReservationService{
		db:           db,
		locker:       locker,
		tokens:       tokens,
		schedules:    schedules,
		seats:        seats,
		reservations: reservations,
		cache:        cache,
		cfg:          cfg,
	}
}

// ReserveResult is the outcome of a successful Reserve.
type ReserveResult struct {
	ReservationID uint64
	Status        model.ReservationStatus
	ExpiresAt     time.Time
}

// Reserve places a PENDING hold on the seat for the token's user. The
// seat lock wraps the whole guarded write — availability check, seat
// transition and reservation insert run in one transaction inside it — so
// the read-then-write race between two concurrent callers cannot happen.
func (s *ReservationService) Reserve(ctx context.Context, token string, userID, scheduleID, seatID uint64) (*ReserveResult, error) {
	if _, err := s.tokens.Validate(ctx, token); err != nil {
		return nil, err
	}

	ok, err := s.schedules.Exists(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrScheduleNotFound
	}

	var result *ReserveResult
	lockKey := fmt.Sprintf("seat:%d", seatID)
	err = s.locker.WithLock(ctx, lockKey, s.cfg.LockWait, s.cfg.LockLease, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		seat, err := s.seats.GetTx(ctx, tx, seatID)
		if err != nil {
			return err
		}
		if err := seat.Reserve(); err != nil {
			return err
		}
		if err := s.seats.UpdateStatusTx(ctx, tx, seat); err != nil {
			return err
		}

		res := model.NewReservation(userID, scheduleID, seatID, s.cfg.Lease)
		if err := s.reservations.CreateTx(ctx, tx, res); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true

		result = &ReserveResult{ReservationID: res.ID, Status: res.Status, ExpiresAt: res.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.RefreshSeats(ctx, scheduleID)
	}
	return result, nil
}

// SweepExpired reclaims PENDING reservations whose lease has elapsed:
// reservation → EXPIRED, seat → AVAILABLE. Runs on a fixed cadence; safe
// to run concurrently across instances because the batch is selected FOR
// UPDATE SKIP LOCKED and the status transitions are guarded. A failure on
// one reservation is logged and skipped so a single bad row never halts
// the batch.
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	expired, err := s.reservations.FindExpiredTx(ctx, tx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, tx.Commit()
	}

	processed := 0
	touched := make(map[uint64]struct{}) // schedules whose seat cache needs a refresh
	for _, res := range expired {
		if err := s.expireOne(ctx, tx, res); err != nil {
			log.Printf("reservation sweep: reservation %d: %v", res.ID, err)
			continue
		}
		touched[res.ScheduleID] = struct{}{}
		processed++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true

	if s.cache != nil {
		for scheduleID := range touched {
			s.cache.RefreshSeats(ctx, scheduleID)
		}
	}
	if processed > 0 {
		log.Printf("reservation sweep: expired %d of %d candidates", processed, len(expired))
	}
	return processed, nil
}

func (s *ReservationService) expireOne(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	if err := s.reservations.UpdateStatusTx(ctx, tx, res.ID, model.ReservationPending, model.ReservationExpired); err != nil {
		return err
	}
	seat, err := s.seats.GetTx(ctx, tx, res.SeatID)
	if err != nil {
		return err
	}
	seat.Release()
	return s.seats.UpdateStatusTx(ctx, tx, seat)
}
