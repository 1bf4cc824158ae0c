package repository

import (
	"context"
	"database/sql"
	"time"

	"concertgate/internal/model"
)

// OutboxRepo provides data access to the outbox_events table. CreateTx is
// the only write that happens inside a business transaction; every other
// method belongs to the relay worker, which runs on its own connection.
type OutboxRepo struct {
	db *sql.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// CreateTx appends a PENDING record inside the caller's transaction. No
// network I/O happens here — that is what gives atomicity with the
// business write.
func (r *OutboxRepo) CreateTx(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error {
	const q = `INSERT INTO outbox_events
		(aggregate_type, aggregate_id, event_type, topic, payload, status, retry_count, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		ev.AggregateType, ev.AggregateID, ev.EventType, ev.Topic, ev.Payload,
		ev.Status, ev.RetryCount, ev.LastError, ev.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// FindPending returns up to limit PENDING records, oldest first.
func (r *OutboxRepo) FindPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	const q = `SELECT id, aggregate_type, aggregate_id, event_type, topic, payload,
		status, retry_count, last_error, created_at, published_at
		FROM outbox_events WHERE status = ? ORDER BY created_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.OutboxPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var ev model.OutboxEvent
		var publishedAt sql.NullTime
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.EventType, &ev.Topic,
			&ev.Payload, &ev.Status, &ev.RetryCount, &ev.LastError, &ev.CreatedAt, &publishedAt); err != nil {
			return nil, err
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			ev.PublishedAt = &t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkPublished records a successful publish with its timestamp.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64) error {
	const q = `UPDATE outbox_events SET status = ?, published_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, model.OutboxPublished, id)
	return err
}

// MarkFailed records a publish failure, bumping the retry counter and the
// last error for the retry pass.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	const q = `UPDATE outbox_events SET status = ?, retry_count = retry_count + 1, last_error = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, model.OutboxFailed, errMsg, id)
	return err
}

// ResetFailed puts FAILED records with a retry count below the ceiling
// back to PENDING and returns how many were reset.
func (r *OutboxRepo) ResetFailed(ctx context.Context, maxRetry int) (int64, error) {
	const q = `UPDATE outbox_events SET status = ? WHERE status = ? AND retry_count < ?`
	res, err := r.db.ExecContext(ctx, q, model.OutboxPending, model.OutboxFailed, maxRetry)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeletePublishedBefore removes PUBLISHED records older than the cutoff
// and returns how many were deleted.
func (r *OutboxRepo) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM outbox_events WHERE status = ? AND published_at < ?`
	res, err := r.db.ExecContext(ctx, q, model.OutboxPublished, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
