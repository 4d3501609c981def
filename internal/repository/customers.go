package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmoiron/sqlx"
)

type CustomersRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

// GetByID returns (nil, nil) when the customer does not exist.
func (r *CustomersRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, name, COALESCE(phone, '') AS phone, COALESCE(license_plate, '') AS license_plate,
		       created_at, updated_at
		  FROM customers
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
