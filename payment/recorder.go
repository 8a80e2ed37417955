package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
)

var (
	ErrInvalidAmount = errors.New("payment amount must be positive")
	ErrDeclined      = errors.New("payment was not confirmed")
)

// UnrecordedChargeError means the gateway took the money but the payment record could
// not be stored. The customer has been charged under ChargeID.
type UnrecordedChargeError struct {
	ChargeID string
	Err      error
}

func (e *UnrecordedChargeError) Error() string {
	return fmt.Sprintf("charge %s succeeded but was not recorded: %v", e.ChargeID, e.Err)
}

func (e *UnrecordedChargeError) Unwrap() error {
	return e.Err
}

type store interface {
	Insert(ctx context.Context, rec *Record) error
}

// Recorder charges through a Gateway and keeps a record of every successful charge.
type Recorder struct {
	gateway Gateway
	store   store
	logger  *slog.Logger
}

type Option func(*Recorder)

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

func NewRecorder(g Gateway, s store, opts ...Option) *Recorder {
	r := &Recorder{gateway: g, store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Create(ctx context.Context, req Request) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}

	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return Intent{}, err
	}

	charge, err := r.gateway.Charge(ctx, req)
	if err != nil {
		return Intent{}, err
	}
	if charge.Status != StatusSucceeded {
		return Intent{}, fmt.Errorf("%w: status %s", ErrDeclined, charge.Status)
	}

	err = r.store.Insert(ctx, &Record{
		ID:            charge.ID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.Method,
		Metadata:      metadata,
		Status:        charge.Status,
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "charge succeeded but was not recorded",
			"chargeId", charge.ID, "amount", req.Amount, "currency", req.Currency,
			"user", req.Metadata.UserID, "error", err)
		return Intent{}, &UnrecordedChargeError{ChargeID: charge.ID, Err: err}
	}

	return Intent{ID: charge.ID, ClientSecret: charge.ClientSecret}, nil
}
