package repository

import (
	"context"
	"database/sql"
	"time"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// ReservationRepo provides data access to the reservations table.
// Confirmation reads the row FOR UPDATE; the expiry sweep selects its batch
// FOR UPDATE SKIP LOCKED, so the two paths never race on the same row.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new PENDING reservation within the caller's
// transaction and populates the generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, schedule_id, seat_id, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.ScheduleID, res.SeatID, res.Status, res.CreatedAt, res.ExpiresAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads one reservation with a pessimistic row lock. The
// lock serializes confirmation against double payment and against the
// expiry sweep. Returns apperr.ErrReservationNotFound when absent.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (*model.Reservation, error) {
	const q = `SELECT id, user_id, schedule_id, seat_id, status, created_at, expires_at
		FROM reservations WHERE id = ? FOR UPDATE`
	var res model.Reservation
	err := tx.QueryRowContext(ctx, q, reservationID).Scan(
		&res.ID, &res.UserID, &res.ScheduleID, &res.SeatID, &res.Status, &res.CreatedAt, &res.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatusTx moves a reservation from one status to another. The
// status guard in the WHERE clause makes the transition idempotent under
// concurrent sweeps: zero affected rows means the row already left the
// expected state, surfaced as apperr.ErrReservationNotPending.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, from, to model.ReservationStatus) error {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, reservationID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrReservationNotPending
	}
	return nil
}

// FindExpiredTx selects PENDING reservations whose lease has elapsed,
// oldest first, locking the rows for this transaction. SKIP LOCKED lets
// the sweep pass over rows an in-flight confirmation currently holds.
func (r *ReservationRepo) FindExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.Reservation, error) {
	const q = `SELECT id, user_id, schedule_id, seat_id, status, created_at, expires_at
		FROM reservations WHERE status = ? AND expires_at < ?
		ORDER BY expires_at LIMIT ? FOR UPDATE SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, q, model.ReservationPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.ScheduleID, &res.SeatID, &res.Status, &res.CreatedAt, &res.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
