// Package checkout turns a session's cart into a recorded payment and one rental per
// cart line.
package checkout

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/campusbike/cart"
	"github.com/semanticallynull/campusbike/catalog"
	"github.com/semanticallynull/campusbike/payment"
	"github.com/semanticallynull/campusbike/rental"
	"github.com/semanticallynull/campusbike/session"
)

type PaymentRecorder interface {
	Create(ctx context.Context, req payment.Request) (payment.Intent, error)
}

type RentalRepository interface {
	Create(ctx context.Context, n rental.NewRental) (rental.Rental, error)
	ListByUser(ctx context.Context, userID string) ([]rental.Rental, error)
	Complete(ctx context.Context, id uuid.UUID, userID string) (rental.Rental, error)
	Cancel(ctx context.Context, id uuid.UUID, userID string) (rental.Rental, error)
}

type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
	Name   string `json:"name"`
}

type DiningDetails struct {
	StudentID string `json:"studentId"`
	PIN       string `json:"pin"`
}

// Request holds the trip parameters as the visitor entered them.
type Request struct {
	PickupLocation  string
	DropoffLocation string
	// RentalHours is the raw duration input. It must parse to an integer of at least 1.
	RentalHours   string
	PaymentMethod rental.PaymentMethod
	Card          CardDetails
	Dining        DiningDetails
	// PaymentToken is passed through to gateways that take a client-side payment method.
	PaymentToken string
}

type Receipt struct {
	PaymentID  string          `json:"paymentId"`
	Subtotal   float64         `json:"subtotal"`
	FinalTotal float64         `json:"finalTotal"`
	Total      float64         `json:"total"`
	Amount     int64           `json:"amount"`
	Currency   string          `json:"currency"`
	Rentals    []rental.Rental `json:"rentals"`
}

type Service struct {
	payments    PaymentRecorder
	rentals     RentalRepository
	guard       Guard
	logger      *slog.Logger
	tracer      trace.Tracer
	currency    string
	callTimeout time.Duration
	compensate  bool
}

type Option func(*Service)

func WithGuard(g Guard) Option {
	return func(s *Service) { s.guard = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithCurrency(c string) Option {
	return func(s *Service) { s.currency = c }
}

// WithCallTimeout bounds every payment and rental call. A call that runs out of time
// fails the same way as one that reports an error.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

// WithCompensation cancels the rentals already created by a checkout when a later line
// fails. Without it they stay active.
func WithCompensation() Option {
	return func(s *Service) { s.compensate = true }
}

func New(payments PaymentRecorder, rentals RentalRepository, opts ...Option) *Service {
	s := &Service{
		payments:    payments,
		rentals:     rentals,
		guard:       NewMemoryGuard(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("checkout"),
		currency:    "usd",
		callTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout charges once for the whole cart and creates one rental per line, in cart
// order. On success the checked-out lines are removed from the cart.
func (s *Service) Checkout(ctx context.Context, sess *session.Session, req Request) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout",
		trace.WithAttributes(attribute.String("session.id", sess.ID.String())))
	defer span.End()

	receipt, err := s.checkout(ctx, sess, req)
	outcome := outcomeOf(err)
	checkoutAttemptsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("checkout.outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return receipt, err
}

func (s *Service) checkout(ctx context.Context, sess *session.Session, req Request) (*Receipt, error) {
	lines := sess.Cart.Lines()

	hours, err := validate(lines, req)
	if err != nil {
		return nil, err
	}
	req.PickupLocation = strings.TrimSpace(req.PickupLocation)
	req.DropoffLocation = strings.TrimSpace(req.DropoffLocation)

	user := sess.CurrentUser()
	if user == nil {
		return nil, ErrAuthRequired
	}

	key := sess.ID.String()
	token, ok, err := s.guard.Acquire(ctx, key, s.holdTTL(len(lines)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	defer func() {
		// The attempt's context may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		if err := s.guard.Release(rctx, key, token); err != nil {
			s.logger.ErrorContext(ctx, "failed to release checkout guard", "session", key, "error", err)
		}
	}()

	subtotal := cart.Subtotal(lines)
	finalTotal, total := Totals(subtotal, hours)
	amount := MinorUnits(total)

	bikeIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		bikeIDs = append(bikeIDs, strconv.Itoa(l.BikeID))
	}

	var intent payment.Intent
	err = s.call(ctx, "payment.create", func(ctx context.Context) error {
		var err error
		intent, err = s.payments.Create(ctx, payment.Request{
			Amount:   amount,
			Currency: s.currency,
			Method:   req.PaymentMethod,
			Metadata: payment.Metadata{
				UserID:          user.UID,
				BikeIDs:         bikeIDs,
				PickupLocation:  req.PickupLocation,
				DropoffLocation: req.DropoffLocation,
				RentalHours:     hours,
			},
			Email:          user.Email,
			IdempotencyKey: uuid.NewString(),
			Token:          req.PaymentToken,
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create payment", "user", user.UID, "amount", amount, "error", err)
		return nil, &PaymentError{Err: err}
	}

	reference := paymentReference(req)
	created := make([]rental.Rental, 0, len(lines))
	for _, l := range lines {
		var rt rental.Rental
		err = s.call(ctx, "rental.create", func(ctx context.Context) error {
			var err error
			rt, err = s.rentals.Create(ctx, rental.NewRental{
				BikeName:         l.Name,
				PickupLocation:   req.PickupLocation,
				DropoffLocation:  req.DropoffLocation,
				TotalPrice:       LinePrice(l.Price, hours),
				UserID:           user.UID,
				RentalHours:      hours,
				PaymentMethod:    req.PaymentMethod,
				PaymentID:        intent.ID,
				PaymentReference: reference,
			})
			return err
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to create rental",
				"user", user.UID, "bike", l.Name, "paymentId", intent.ID, "created", len(created), "error", err)
			return nil, s.rentalFailed(ctx, user.UID, l.Name, intent.ID, created, err)
		}
		checkoutRentalsCreatedTotal.Inc()
		created = append(created, rt)
	}

	// Lines added while the attempt ran stay in the cart.
	for _, l := range lines {
		sess.Cart.Remove(l.BikeID)
	}

	return &Receipt{
		PaymentID:  intent.ID,
		Subtotal:   subtotal,
		FinalTotal: finalTotal,
		Total:      total,
		Amount:     amount,
		Currency:   s.currency,
		Rentals:    created,
	}, nil
}

func (s *Service) rentalFailed(ctx context.Context, userID, bikeName, paymentID string, created []rental.Rental, cause error) error {
	rerr := &RentalCreationError{
		BikeName:  bikeName,
		PaymentID: paymentID,
		Created:   make([]string, 0, len(created)),
		Err:       cause,
	}
	for _, rt := range created {
		rerr.Created = append(rerr.Created, rt.ID.String())
	}
	if !s.compensate || len(created) == 0 {
		return rerr
	}

	// Compensation runs even if the attempt's context is already done.
	ctx = context.WithoutCancel(ctx)
	compensated := true
	for _, rt := range created {
		err := s.call(ctx, "rental.cancel", func(ctx context.Context) error {
			_, err := s.rentals.Cancel(ctx, rt.ID, userID)
			return err
		})
		if err != nil {
			compensated = false
			s.logger.ErrorContext(ctx, "failed to cancel rental after checkout failure",
				"rental", rt.ID, "paymentId", paymentID, "error", err)
		}
	}
	rerr.Compensated = compensated
	return rerr
}

// holdTTL bounds how long an attempt over n lines can hold the guard: one payment call,
// n rental creates, n compensating cancels and the release itself.
func (s *Service) holdTTL(n int) time.Duration {
	return s.callTimeout * time.Duration(2*n+2)
}

// call runs fn under the per-call timeout, inside its own span.
func (s *Service) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	externalCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// validate checks the request in a fixed order and returns the parsed rental hours.
func validate(lines []cart.Line, req Request) (int, error) {
	if len(lines) == 0 {
		return 0, ErrEmptyCart
	}

	pickup := strings.TrimSpace(req.PickupLocation)
	dropoff := strings.TrimSpace(req.DropoffLocation)
	if pickup == "" || dropoff == "" {
		return 0, invalid("missing locations")
	}
	if !catalog.IsLocation(pickup) || !catalog.IsLocation(dropoff) {
		return 0, invalid("unknown location")
	}

	hours, err := strconv.Atoi(strings.TrimSpace(req.RentalHours))
	if err != nil || hours < 1 || hours > MaxRentalHours {
		return 0, invalid("invalid duration")
	}

	switch req.PaymentMethod {
	case rental.PaymentCard:
		c := req.Card
		if len(cardDigits(c.Number)) == 0 || blank(c.Expiry) || blank(c.CVC) || blank(c.Name) {
			return 0, invalid("incomplete card details")
		}
	case rental.PaymentDining:
		d := req.Dining
		if blank(d.StudentID) || blank(d.PIN) {
			return 0, invalid("incomplete dining details")
		}
	default:
		return 0, invalid("unsupported payment method")
	}

	return hours, nil
}

// paymentReference is what the history view shows about how a rental was paid.
func paymentReference(req Request) string {
	if req.PaymentMethod == rental.PaymentDining {
		return "Student ID: " + strings.TrimSpace(req.Dining.StudentID)
	}

	digits := cardDigits(req.Card.Number)
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return "**** " + string(digits)
}

func cardDigits(number string) []rune {
	var digits []rune
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	return digits
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
