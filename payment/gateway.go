package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// Charge is the gateway's answer to a charge request.
type Charge struct {
	ID           string
	ClientSecret string
	Status       string
}

// Gateway takes the money. Only a Charge with StatusSucceeded counts as paid.
type Gateway interface {
	Charge(ctx context.Context, req Request) (Charge, error)
}

// SimulatedGateway accepts every charge without contacting anyone.
type SimulatedGateway struct{}

func (SimulatedGateway) Charge(_ context.Context, _ Request) (Charge, error) {
	id := "payment_" + uuid.NewString()
	return Charge{ID: id, ClientSecret: id, Status: StatusSucceeded}, nil
}

// Customers resolves the Stripe customer a user's charges are attached to.
type Customers interface {
	StripeCustomerID(ctx context.Context, userID, email string) (string, error)
}

// StripeGateway charges through a Stripe PaymentIntent, confirmed synchronously.
type StripeGateway struct {
	customers Customers
}

// NewStripeGateway sets the Stripe API key used by the package-level client. customers
// may be nil, in which case intents carry no customer.
func NewStripeGateway(key string, customers Customers) *StripeGateway {
	stripe.Key = key
	return &StripeGateway{customers: customers}
}

func (g *StripeGateway) Charge(ctx context.Context, req Request) (Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		Metadata: map[string]string{
			"user_id":          req.Metadata.UserID,
			"bike_ids":         strings.Join(req.Metadata.BikeIDs, ","),
			"pickup_location":  req.Metadata.PickupLocation,
			"dropoff_location": req.Metadata.DropoffLocation,
			"rental_hours":     fmt.Sprint(req.Metadata.RentalHours),
			"payment_method":   string(req.Method),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if g.customers != nil && req.Metadata.UserID != "" {
		id, err := g.customers.StripeCustomerID(ctx, req.Metadata.UserID, req.Email)
		if err != nil {
			return Charge{}, fmt.Errorf("resolve stripe customer: %w", err)
		}
		params.Customer = stripe.String(id)
	}
	if req.Token != "" {
		params.PaymentMethod = stripe.String(req.Token)
		params.Confirm = stripe.Bool(true)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return Charge{}, err
	}

	return Charge{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}
