package repository

import (
	"context"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmoiron/sqlx"
)

type ServicesRepository interface {
	ListByTransaction(ctx context.Context, transactionID int64) ([]model.Service, error)
}

type ServicesRepositoryImpl struct {
	db *sqlx.DB
}

func NewServicesRepository(db *sqlx.DB) *ServicesRepositoryImpl {
	return &ServicesRepositoryImpl{db: db}
}

var _ ServicesRepository = (*ServicesRepositoryImpl)(nil)

// ListByTransaction returns the services of a transaction in the order they
// were rung up.
func (r *ServicesRepositoryImpl) ListByTransaction(ctx context.Context, transactionID int64) ([]model.Service, error) {
	var rows []model.Service
	err := r.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.name, s.price
		  FROM transaction_items ti
		  JOIN services s ON s.id = ti.service_id
		 WHERE ti.transaction_id = ?
		 ORDER BY ti.id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
