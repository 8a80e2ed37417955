package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var ErrNotFound = errors.New("customer not found")

func (r *Repository) GetByAuth0ID(ctx context.Context, auth0ID string) (*Customer, error) {
	var c Customer
	err := r.db.GetContext(ctx, &c, getCustomerByAuth0IDQuery, auth0ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}
	return &c, nil
}

const getCustomerByAuth0IDQuery = "SELECT * FROM customers WHERE auth0_id = $1"

// Create inserts a customer for auth0ID, or returns the existing one.
func (r *Repository) Create(ctx context.Context, auth0ID, email string) (*Customer, error) {
	var c Customer
	err := r.db.GetContext(ctx, &c, createCustomerQuery, uuid.New(), auth0ID, email)
	return &c, err
}

const createCustomerQuery = `
INSERT INTO customers (id, auth0_id, email, created_at) VALUES ($1, $2, NULLIF($3, ''), now())
ON CONFLICT (auth0_id) DO UPDATE SET email = COALESCE(EXCLUDED.email, customers.email)
RETURNING *
`

func (r *Repository) SetStripeID(ctx context.Context, auth0ID, stripeID string) error {
	_, err := r.db.ExecContext(ctx, setStripeIDQuery, stripeID, auth0ID)
	return err
}

const setStripeIDQuery = "UPDATE customers SET stripe_id = $1 WHERE auth0_id = $2"
