package checkout

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkoutAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	checkoutRentalsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_rentals_created_total",
			Help: "Rentals created by checkouts",
		},
	)

	externalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_external_call_duration_seconds",
			Help:    "Duration of payment and rental calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(checkoutAttemptsTotal, checkoutRentalsCreatedTotal, externalCallDuration)
}

func outcomeOf(err error) string {
	var (
		verr *ValidationError
		perr *PaymentError
		rerr *RentalCreationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, ErrCheckoutInProgress):
		return "in_progress"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &perr):
		return "payment"
	case errors.As(err, &rerr):
		return "rental"
	}
	return "error"
}
