package repository

import (
	"context"
	"database/sql"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// SeatRepo provides data access to the seats table. Status changes go
// through UpdateStatusTx, which bumps the version column under an
// optimistic check: the distributed seat lock is the primary serialization
// mechanism, the version guard catches any writer that bypassed it.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// GetTx loads one seat inside the caller's transaction. Returns
// apperr.ErrSeatNotFound when absent.
func (r *SeatRepo) GetTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Seat, error) {
	const q = `SELECT id, schedule_id, seat_number, price, status, version, created_at, updated_at
		FROM seats WHERE id = ?`
	var s model.Seat
	err := tx.QueryRowContext(ctx, q, seatID).Scan(
		&s.ID, &s.ScheduleID, &s.SeatNumber, &s.Price, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatusTx persists the seat's status with an optimistic version
// check. Zero affected rows means another writer got there first and the
// caller sees apperr.ErrConcurrencyConflict. On success the seat's Version
// is bumped to match the row.
func (r *SeatRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, seat *model.Seat) error {
	const q = `UPDATE seats SET status = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, seat.Status, seat.ID, seat.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrConcurrencyConflict
	}
	seat.Version++
	return nil
}

// ListBySchedule returns all seats of a schedule ordered by seat number.
func (r *SeatRepo) ListBySchedule(ctx context.Context, scheduleID uint64) ([]model.Seat, error) {
	const q = `SELECT id, schedule_id, seat_number, price, status, version, created_at, updated_at
		FROM seats WHERE schedule_id = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScheduleID, &s.SeatNumber, &s.Price, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
