package customer

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	stripecustomer "github.com/stripe/stripe-go/v84/customer"
)

type store interface {
	GetByAuth0ID(ctx context.Context, auth0ID string) (*Customer, error)
	Create(ctx context.Context, auth0ID, email string) (*Customer, error)
	SetStripeID(ctx context.Context, auth0ID, stripeID string) error
}

// StripeLinker finds or creates the Stripe customer for a user.
type StripeLinker struct {
	store       store
	newCustomer func(*stripe.CustomerParams) (*stripe.Customer, error)
}

func NewStripeLinker(s store) *StripeLinker {
	return &StripeLinker{store: s, newCustomer: stripecustomer.New}
}

// StripeCustomerID returns the Stripe customer id for auth0ID, creating the local and
// Stripe records on first use.
func (l *StripeLinker) StripeCustomerID(ctx context.Context, auth0ID, email string) (string, error) {
	cust, err := l.store.GetByAuth0ID(ctx, auth0ID)
	if errors.Is(err, ErrNotFound) {
		cust, err = l.store.Create(ctx, auth0ID, email)
	}
	if err != nil {
		return "", err
	}

	if cust.StripeID.Valid {
		return cust.StripeID.String, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			"auth0_id": auth0ID,
			"id":       cust.ID.String(),
		},
	}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	sc, err := l.newCustomer(params)
	if err != nil {
		return "", err
	}

	if err := l.store.SetStripeID(ctx, auth0ID, sc.ID); err != nil {
		return "", err
	}

	return sc.ID, nil
}
