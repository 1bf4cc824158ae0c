package repository

import (
	"context"
	"database/sql"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// ScheduleRepo provides read access to concerts and their schedules. The
// catalog is effectively read-only at runtime; writes happen out of band.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// Exists reports whether a schedule row with the given ID exists.
func (r *ScheduleRepo) Exists(ctx context.Context, scheduleID uint64) (bool, error) {
	const q = `SELECT 1 FROM concert_schedules WHERE id = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, scheduleID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConcertExists reports whether a concert row with the given ID exists.
func (r *ScheduleRepo) ConcertExists(ctx context.Context, concertID uint64) (bool, error) {
	const q = `SELECT 1 FROM concerts WHERE id = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, concertID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByConcert returns the schedules of one concert ordered by show date.
// Returns apperr.ErrConcertNotFound when the concert itself is absent.
func (r *ScheduleRepo) ListByConcert(ctx context.Context, concertID uint64) ([]model.ConcertSchedule, error) {
	ok, err := r.ConcertExists(ctx, concertID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrConcertNotFound
	}

	const q = `SELECT id, concert_id, show_date, created_at
		FROM concert_schedules WHERE concert_id = ? ORDER BY show_date`
	rows, err := r.db.QueryContext(ctx, q, concertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.ConcertSchedule
	for rows.Next() {
		var s model.ConcertSchedule
		if err := rows.Scan(&s.ID, &s.ConcertID, &s.ShowDate, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// ListAll returns every schedule. Used by the catalog cache warm-up.
func (r *ScheduleRepo) ListAll(ctx context.Context) ([]model.ConcertSchedule, error) {
	const q = `SELECT id, concert_id, show_date, created_at FROM concert_schedules ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.ConcertSchedule
	for rows.Next() {
		var s model.ConcertSchedule
		if err := rows.Scan(&s.ID, &s.ConcertID, &s.ShowDate, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
