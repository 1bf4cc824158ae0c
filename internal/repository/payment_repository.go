package repository

import (
	"context"
	"database/sql"

	"concertgate/internal/model"
)

// PaymentRepo provides data access to the payments table. Payments are
// insert-only audit records.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts a completed payment within the caller's transaction and
// populates the generated ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, user_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, p.ReservationID, p.UserID, p.Amount, p.Status, p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}
