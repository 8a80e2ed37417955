package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("payment not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	return r.db.GetContext(ctx, rec, insertPaymentQuery,
		rec.ID, rec.Amount, rec.Currency, rec.PaymentMethod, rec.Metadata, rec.Status)
}

const insertPaymentQuery = `
INSERT INTO payments (id, amount, currency, payment_method, metadata, status, created)
VALUES ($1, $2, $3, $4, $5, $6, now())
RETURNING *
`

func (r *Repository) GetByID(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, getPaymentByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

const getPaymentByIDQuery = `SELECT * FROM payments WHERE id = $1`
