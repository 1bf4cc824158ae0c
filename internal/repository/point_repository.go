package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// MySQL duplicate-key error, raised when two first-ever charges race on
// the unique user_id index.
const mysqlErrDuplicateEntry = 1062

// PointRepo provides data access to the points table. Balances are guarded
// by optimistic versioning rather than row locks: conflicts are rare and
// the retry cost is low, and a version mismatch must surface as a declared
// conflict instead of a silently lost update.
type PointRepo struct {
	db *sql.DB
}

// NewPointRepo returns a new PointRepo bound to the given database.
func NewPointRepo(db *sql.DB) *PointRepo { return &PointRepo{db: db} }

// Get loads a user's balance outside a transaction. Returns
// sql.ErrNoRows untouched when the user has no balance row; callers decide
// whether absence means zero.
func (r *PointRepo) Get(ctx context.Context, userID uint64) (*model.Point, error) {
	return r.get(ctx, r.db.QueryRowContext, userID)
}

// GetTx is Get inside the caller's transaction.
func (r *PointRepo) GetTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Point, error) {
	return r.get(ctx, tx.QueryRowContext, userID)
}

type queryRowFunc func(ctx context.Context, query string, args ...interface{}) *sql.Row

func (r *PointRepo) get(ctx context.Context, queryRow queryRowFunc, userID uint64) (*model.Point, error) {
	const q = `SELECT id, user_id, balance, version, created_at, updated_at
		FROM points WHERE user_id = ?`
	var p model.Point
	err := queryRow(ctx, q, userID).Scan(&p.ID, &p.UserID, &p.Balance, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateTx inserts a fresh balance row for a user who has none yet. When a
// concurrent writer created the row first, the unique-key violation is
// reported as apperr.ErrConcurrencyConflict so no driver error reaches the
// caller.
func (r *PointRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Point) error {
	const q = `INSERT INTO points (user_id, balance, version, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`
	result, err := tx.ExecContext(ctx, q, p.UserID, p.Balance, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
			return apperr.ErrConcurrencyConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// SaveTx persists a mutated balance with an optimistic version check. Zero
// affected rows means a concurrent writer bumped the version first and the
// caller sees apperr.ErrConcurrencyConflict — never retried transparently,
// so a genuine double spend is not masked.
func (r *PointRepo) SaveTx(ctx context.Context, tx *sql.Tx, p *model.Point) error {
	const q = `UPDATE points SET balance = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, p.Balance, p.ID, p.Version)
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
	p.Version++
	return nil
}
