// Package payment records the single charge a checkout makes.
package payment

import (
	"time"

	"github.com/semanticallynull/campusbike/rental"
)

const StatusSucceeded = "succeeded"

// Metadata describes what a payment is for.
type Metadata struct {
	UserID          string   `json:"userId"`
	BikeIDs         []string `json:"bikeIds"`
	PickupLocation  string   `json:"pickupLocation"`
	DropoffLocation string   `json:"dropoffLocation"`
	RentalHours     int      `json:"rentalHours"`
}

type Request struct {
	// Amount is in minor units (cents).
	Amount   int64
	Currency string
	Method   rental.PaymentMethod
	Metadata Metadata
	Email    string
	// IdempotencyKey identifies the checkout attempt. Gateways that support it use it to
	// avoid charging twice for one attempt.
	IdempotencyKey string
	// Token is a gateway-side payment method reference, if the client obtained one.
	Token string
}

// Intent is what the caller gets back: an id to cross-reference rentals with.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// Record is a stored payment.
type Record struct {
	ID            string               `db:"id"`
	Amount        int64                `db:"amount"`
	Currency      string               `db:"currency"`
	PaymentMethod rental.PaymentMethod `db:"payment_method"`
	Metadata      []byte               `db:"metadata"`
	Status        string               `db:"status"`
	Created       time.Time            `db:"created"`
}
