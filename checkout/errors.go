package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart means there is nothing to check out. Callers send the visitor back to
	// the cart rather than showing an error.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAuthRequired means no one is signed in.
	ErrAuthRequired = errors.New("authentication required")
	// ErrCheckoutInProgress rejects a second attempt while one is pending for the session.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ValidationError is a problem with the visitor's input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// PaymentError means the payment could not be recorded. No rentals were created. When
// it wraps a payment.UnrecordedChargeError the customer was charged anyway.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string {
	return "payment failed: " + e.Err.Error()
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// RentalCreationError means the rental for BikeName could not be created after the
// payment succeeded. Created lists the rentals of the same checkout that were already
// stored; Compensated reports whether they were cancelled afterwards.
type RentalCreationError struct {
	BikeName    string
	PaymentID   string
	Created     []string
	Compensated bool
	Err         error
}

func (e *RentalCreationError) Error() string {
	return fmt.Sprintf("failed to create rental for %s: %v", e.BikeName, e.Err)
}

func (e *RentalCreationError) Unwrap() error {
	return e.Err
}

// StorageError means rentals could not be read back.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "failed to load rentals: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
