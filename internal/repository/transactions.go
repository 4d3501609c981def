package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmoiron/sqlx"
)

// TransactionsRepository reads and updates point-of-sale transactions.
type TransactionsRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, status model.StatusKind) error
	SetTrackingCode(ctx context.Context, id int64, code string) error
}

type TransactionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionsRepository(db *sqlx.DB) *TransactionsRepositoryImpl {
	return &TransactionsRepositoryImpl{db: db}
}

var _ TransactionsRepository = (*TransactionsRepositoryImpl)(nil)

const selectTransaction = `
		SELECT id, customer_id, status, COALESCE(tracking_code, '') AS tracking_code, created_at, updated_at
		  FROM transactions
		 WHERE id = ?`

// GetByID returns (nil, nil) when the transaction does not exist.
func (r *TransactionsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.GetContext(ctx, &t, selectTransaction+" LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetForUpdate locks the row for the rest of tx.
func (r *TransactionsRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Transaction, error) {
	var t model.Transaction
	err := tx.GetContext(ctx, &t, selectTransaction+" FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionsRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, status model.StatusKind) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		   SET status = ?, updated_at = NOW()
		 WHERE id = ?
	`, status.String(), id)
	return err
}

// SetTrackingCode stores code only if the transaction has none yet.
func (r *TransactionsRepositoryImpl) SetTrackingCode(ctx context.Context, id int64, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		   SET tracking_code = ?, updated_at = NOW()
		 WHERE id = ? AND (tracking_code IS NULL OR tracking_code = '')
	`, code, id)
	return err
}
