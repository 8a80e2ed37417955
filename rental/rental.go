package rental

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentDining PaymentMethod = "dining"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentDining
}

func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pm := PaymentMethod(s)
	if !pm.Valid() {
		return fmt.Errorf("unsupported payment method %q", s)
	}
	*m = pm
	return nil
}

// Rental is one bike rented as part of a checkout.
type Rental struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	BikeName         string        `db:"bike_name" json:"bikeName"`
	PickupLocation   string        `db:"pickup_location" json:"pickupLocation"`
	DropoffLocation  string        `db:"dropoff_location" json:"dropoffLocation"`
	StartTime        time.Time     `db:"start_time" json:"startTime"`
	EndTime          time.Time     `db:"end_time" json:"endTime"`
	Status           Status        `db:"status" json:"status"`
	TotalPrice       float64       `db:"total_price" json:"totalPrice"`
	UserID           string        `db:"user_id" json:"userId"`
	RentalHours      int           `db:"rental_hours" json:"rentalHours"`
	PaymentMethod    PaymentMethod `db:"payment_method" json:"paymentMethod"`
	PaymentID        string        `db:"payment_id" json:"paymentId"`
	PaymentReference string        `db:"payment_reference" json:"paymentReference"`
}

// NewRental carries the fields the caller decides. Identity, times and status are set
// on creation.
type NewRental struct {
	BikeName         string
	PickupLocation   string
	DropoffLocation  string
	TotalPrice       float64
	UserID           string
	RentalHours      int
	PaymentMethod    PaymentMethod
	PaymentID        string
	PaymentReference string
}

// History is a user's rentals split by status, each part keeping the input order.
type History struct {
	Active    []Rental `json:"active"`
	Completed []Rental `json:"completed"`
	Cancelled []Rental `json:"cancelled"`
}

// Partition splits rentals by status. Every rental lands in exactly one part; rentals
// with an unknown status are treated as completed.
func Partition(rentals []Rental) History {
	h := History{
		Active:    []Rental{},
		Completed: []Rental{},
		Cancelled: []Rental{},
	}
	for _, r := range rentals {
		switch r.Status {
		case StatusActive:
			h.Active = append(h.Active, r)
		case StatusCancelled:
			h.Cancelled = append(h.Cancelled, r)
		default:
			h.Completed = append(h.Completed, r)
		}
	}
	return h
}
