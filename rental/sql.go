// Package rental persists rentals and reads them back for the history view.
package rental

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound          = errors.New("rental not found")
	ErrNotAuthorized     = errors.New("not authorized to modify this rental")
	ErrInvalidTransition = errors.New("rental is not active")
	ErrInvalidHours      = errors.New("rental hours must be at least 1")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an active rental starting now and ending RentalHours later. The id is
// assigned by the database.
func (r *Repository) Create(ctx context.Context, n NewRental) (Rental, error) {
	if n.RentalHours < 1 {
		return Rental{}, ErrInvalidHours
	}

	var rt Rental
	err := r.db.GetContext(ctx, &rt, createRentalQuery,
		n.BikeName, n.PickupLocation, n.DropoffLocation, StatusActive, n.TotalPrice, n.UserID,
		n.RentalHours, n.PaymentMethod, n.PaymentID, n.PaymentReference)
	return rt, err
}

const createRentalQuery = `
INSERT INTO rentals (bike_name, pickup_location, dropoff_location, start_time, end_time, status,
                     total_price, user_id, rental_hours, payment_method, payment_id, payment_reference)
VALUES ($1, $2, $3, now(), now() + make_interval(hours => $7), $4, $5, $6, $7, $8, $9, $10)
RETURNING *
`

// ListByUser fetches all rentals owned by userID, most recent first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Rental, error) {
	rentals := []Rental{}
	err := r.db.SelectContext(ctx, &rentals, listByUserQuery, userID)
	if err != nil {
		return nil, err
	}
	return rentals, nil
}

const listByUserQuery = `SELECT * FROM rentals WHERE user_id = $1 ORDER BY start_time DESC, id DESC`

// GetByID fetches a single rental by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Rental, error) {
	var rt Rental
	err := r.db.GetContext(ctx, &rt, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrNotFound
	}
	return rt, err
}

const getByIDQuery = `SELECT * FROM rentals WHERE id = $1`

// Complete moves an active rental owned by userID to completed.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, userID string) (Rental, error) {
	return r.transition(ctx, id, userID, StatusCompleted)
}

// Cancel moves an active rental owned by userID to cancelled.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, userID string) (Rental, error) {
	return r.transition(ctx, id, userID, StatusCancelled)
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, userID string, to Status) (Rental, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Rental{}, err
	}
	defer tx.Rollback()

	var rt Rental
	err = tx.GetContext(ctx, &rt, getRentalForUpdateQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrNotFound
	}
	if err != nil {
		return Rental{}, err
	}

	if rt.UserID != userID {
		return Rental{}, ErrNotAuthorized
	}
	if rt.Status != StatusActive {
		return Rental{}, ErrInvalidTransition
	}

	err = tx.GetContext(ctx, &rt, setStatusQuery, id, to)
	if err != nil {
		return Rental{}, err
	}

	return rt, tx.Commit()
}

const getRentalForUpdateQuery = `SELECT * FROM rentals WHERE id = $1 FOR UPDATE`

const setStatusQuery = `UPDATE rentals SET status = $2 WHERE id = $1 RETURNING *`
