package checkout

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/semanticallynull/campusbike/catalog"
	"github.com/semanticallynull/campusbike/payment"
	"github.com/semanticallynull/campusbike/rental"
	"github.com/semanticallynull/campusbike/session"
)

type fakePayments struct {
	mu       sync.Mutex
	requests []payment.Request
	err      error
	block    chan struct{}
}

func (p *fakePayments) Create(ctx context.Context, req payment.Request) (payment.Intent, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return payment.Intent{}, ctx.Err()
		}
	}
	if p.err != nil {
		return payment.Intent{}, p.err
	}
	return payment.Intent{ID: "payment_test", ClientSecret: "payment_test"}, nil
}

func (p *fakePayments) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type fakeRentals struct {
	mu      sync.Mutex
	stored  []rental.Rental
	creates int
	// failOn makes the n-th create call (1-based) fail.
	failOn    int
	listErr   error
	cancelErr error
	// onCreate runs before each create, outside the lock.
	onCreate func()
}

func (r *fakeRentals) Create(_ context.Context, n rental.NewRental) (rental.Rental, error) {
	if r.onCreate != nil {
		r.onCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.creates++
	if r.creates == r.failOn {
		return rental.Rental{}, errors.New("write failed")
	}
	now := time.Now()
	rt := rental.Rental{
		ID:               uuid.New(),
		BikeName:         n.BikeName,
		PickupLocation:   n.PickupLocation,
		DropoffLocation:  n.DropoffLocation,
		StartTime:        now,
		EndTime:          now.Add(time.Duration(n.RentalHours) * time.Hour),
		Status:           rental.StatusActive,
		TotalPrice:       n.TotalPrice,
		UserID:           n.UserID,
		RentalHours:      n.RentalHours,
		PaymentMethod:    n.PaymentMethod,
		PaymentID:        n.PaymentID,
		PaymentReference: n.PaymentReference,
	}
	r.stored = append(r.stored, rt)
	return rt, nil
}

func (r *fakeRentals) ListByUser(_ context.Context, userID string) ([]rental.Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []rental.Rental
	for i := len(r.stored) - 1; i >= 0; i-- {
		if r.stored[i].UserID == userID {
			out = append(out, r.stored[i])
		}
	}
	return out, nil
}

func (r *fakeRentals) Complete(ctx context.Context, id uuid.UUID, userID string) (rental.Rental, error) {
	return r.setStatus(id, userID, rental.StatusCompleted)
}

func (r *fakeRentals) Cancel(ctx context.Context, id uuid.UUID, userID string) (rental.Rental, error) {
	if r.cancelErr != nil {
		return rental.Rental{}, r.cancelErr
	}
	return r.setStatus(id, userID, rental.StatusCancelled)
}

func (r *fakeRentals) setStatus(id uuid.UUID, userID string, to rental.Status) (rental.Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.stored {
		if r.stored[i].ID != id {
			continue
		}
		if r.stored[i].UserID != userID {
			return rental.Rental{}, rental.ErrNotAuthorized
		}
		if r.stored[i].Status != rental.StatusActive {
			return rental.Rental{}, rental.ErrInvalidTransition
		}
		r.stored[i].Status = to
		return r.stored[i], nil
	}
	return rental.Rental{}, rental.ErrNotFound
}

var (
	bikeA = catalog.BikeModel{ID: 1, Name: "E-Bike Model 1", Range: 20, Price: 5}
	bikeB = catalog.BikeModel{ID: 2, Name: "E-Bike Model 2", Range: 25, Price: 6}
)

func newSession(signedIn bool, bikes ...catalog.BikeModel) *session.Session {
	s := session.New()
	for _, b := range bikes {
		s.Cart.Add(b)
	}
	if signedIn {
		s.SetUser(&session.User{UID: "user-1", Email: "rider@campus.edu"})
	}
	return s
}

func cardRequest() Request {
	return Request{
		PickupLocation:  "Angel College Center",
		DropoffLocation: "Wilson Hall",
		RentalHours:     "2",
		PaymentMethod:   rental.PaymentCard,
		Card: CardDetails{
			Number: "4242 4242 4242 1234",
			Expiry: "12/29",
			CVC:    "123",
			Name:   "Rider",
		},
	}
}

func TestTotals(t *testing.T) {
	finalTotal, total := Totals(11, 2)

	if math.Abs(finalTotal-11.88) > 1e-9 {
		t.Errorf("expected final total 11.88, got %v", finalTotal)
	}
	if math.Abs(total-23.76) > 1e-9 {
		t.Errorf("expected total 23.76, got %v", total)
	}
	if got := MinorUnits(total); got != 2376 {
		t.Errorf("expected 2376 minor units, got %d", got)
	}
}

func TestLinePrice(t *testing.T) {
	if got := LinePrice(5, 2); got != 10.8 {
		t.Errorf("expected 10.8, got %v", got)
	}
	if got := LinePrice(7, 3); got != 22.68 {
		t.Errorf("expected 22.68, got %v", got)
	}
}

func TestCheckout_TwoLinesMakeOnePaymentAndTwoRentals(t *testing.T) {
	p := &fakePayments{}
	r := &fakeRentals{}
	svc := New(p, r)
	sess := newSession(true, bikeA, bikeB)

	receipt, err := svc.Checkout(context.Background(), sess, cardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.calls() != 1 {
		t.Errorf("expected 1 payment call, got %d", p.calls())
	}
	if r.creates != 2 {
		t.Errorf("expected 2 rental calls, got %d", r.creates)
	}

	req := p.requests[0]
	if req.Amount != 2376 {
		t.Errorf("expected amount 2376, got %d", req.Amount)
	}
	if req.Metadata.UserID != "user-1" || len(req.Metadata.BikeIDs) != 2 || req.Metadata.RentalHours != 2 {
		t.Errorf("unexpected payment metadata: %s", spew.Sdump(req.Metadata))
	}

	if len(receipt.Rentals) != 2 {
		t.Fatalf("expected 2 rentals on the receipt, got %d", len(receipt.Rentals))
	}
	first := receipt.Rentals[0]
	if first.BikeName != bikeA.Name || first.TotalPrice != 10.8 || first.PaymentID != "payment_test" {
		t.Errorf("unexpected first rental: %s", spew.Sdump(first))
	}
	if first.PaymentReference != "**** 1234" {
		t.Errorf("expected masked card reference, got %q", first.PaymentReference)
	}
	if receipt.Rentals[1].TotalPrice != 12.96 {
		t.Errorf("expected second rental price 12.96, got %v", receipt.Rentals[1].TotalPrice)
	}

	if sess.Cart.Len() != 0 {
		t.Errorf("expected cart to be cleared after checkout")
	}
}

func TestCheckout_KeepsLinesAddedDuringCheckout(t *testing.T) {
	sess := newSession(true, bikeA)
	r := &fakeRentals{onCreate: func() { sess.Cart.Add(bikeB) }}
	svc := New(&fakePayments{}, r)

	if _, err := svc.Checkout(context.Background(), sess, cardRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := sess.Cart.Lines()
	if len(lines) != 1 || lines[0].BikeID != bikeB.ID {
		t.Errorf("expected only the late line to remain, got %s", spew.Sdump(lines))
	}
}

func TestCheckout_DiningReference(t *testing.T) {
	r := &fakeRentals{}
	svc := New(&fakePayments{}, r)

	req := cardRequest()
	req.PaymentMethod = rental.PaymentDining
	req.Dining = DiningDetails{StudentID: "S1234567", PIN: "0000"}

	_, err := svc.Checkout(context.Background(), newSession(true, bikeA), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.stored[0].PaymentReference; got != "Student ID: S1234567" {
		t.Errorf("unexpected reference %q", got)
	}
}

func TestCheckout_ValidationHappensBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name     string
		signedIn bool
		empty    bool
		mutate   func(*Request)
		want     string
	}{
		{name: "empty pickup", mutate: func(r *Request) { r.PickupLocation = "" }, want: "missing locations"},
		{name: "blank dropoff", mutate: func(r *Request) { r.DropoffLocation = "  " }, want: "missing locations"},
		{name: "unknown location", mutate: func(r *Request) { r.PickupLocation = "Library" }, want: "unknown location"},
		{name: "zero hours", mutate: func(r *Request) { r.RentalHours = "0" }, want: "invalid duration"},
		{name: "fractional hours", mutate: func(r *Request) { r.RentalHours = "1.5" }, want: "invalid duration"},
		{name: "missing hours", mutate: func(r *Request) { r.RentalHours = "" }, want: "invalid duration"},
		{name: "hours over 30 days", mutate: func(r *Request) { r.RentalHours = "721" }, want: "invalid duration"},
		{name: "hours past int4", mutate: func(r *Request) { r.RentalHours = "3000000000" }, want: "invalid duration"},
		{name: "hours past int64 cents", mutate: func(r *Request) { r.RentalHours = "20000000000000000" }, want: "invalid duration"},
		{name: "missing cvc", mutate: func(r *Request) { r.Card.CVC = "" }, want: "incomplete card details"},
		{name: "card number without digits", mutate: func(r *Request) { r.Card.Number = "abcd-efgh" }, want: "incomplete card details"},
		{
			name: "missing pin",
			mutate: func(r *Request) {
				r.PaymentMethod = rental.PaymentDining
				r.Dining = DiningDetails{StudentID: "S1"}
			},
			want: "incomplete dining details",
		},
		{name: "unknown method", mutate: func(r *Request) { r.PaymentMethod = "cash" }, want: "unsupported payment method"},
		{
			name: "locations checked before duration",
			mutate: func(r *Request) {
				r.PickupLocation = ""
				r.RentalHours = "abc"
			},
			want: "missing locations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePayments{}
			r := &fakeRentals{}
			svc := New(p, r)

			req := cardRequest()
			tt.mutate(&req)

			_, err := svc.Checkout(context.Background(), newSession(true, bikeA), req)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Reason != tt.want {
				t.Errorf("expected reason %q, got %q", tt.want, verr.Reason)
			}
			if p.calls() != 0 || r.creates != 0 {
				t.Errorf("expected no external calls, got %d payment / %d rental", p.calls(), r.creates)
			}
		})
	}
}

func TestCheckout_AcceptsThirtyDays(t *testing.T) {
	p := &fakePayments{}
	r := &fakeRentals{}
	svc := New(p, r)

	req := cardRequest()
	req.RentalHours = "720"

	if _, err := svc.Checkout(context.Background(), newSession(true, bikeA), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.requests[0].Amount; got != 388800 {
		t.Errorf("expected 388800 minor units, got %d", got)
	}
	if rt := r.stored[0]; !rt.EndTime.After(rt.StartTime) {
		t.Errorf("expected end after start, got %v to %v", rt.StartTime, rt.EndTime)
	}
}

func TestCheckout_EmptyCartWinsOverEverything(t *testing.T) {
	p := &fakePayments{}
	svc := New(p, &fakeRentals{})

	req := cardRequest()
	req.PickupLocation = ""

	_, err := svc.Checkout(context.Background(), newSession(false), req)
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}
	if p.calls() != 0 {
		t.Errorf("expected no payment call")
	}
}

func TestCheckout_RequiresSignedInUser(t *testing.T) {
	p := &fakePayments{}
	svc := New(p, &fakeRentals{})
	sess := newSession(false, bikeA)

	_, err := svc.Checkout(context.Background(), sess, cardRequest())
	if !errors.Is(err, ErrAuthRequired) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
	if p.calls() != 0 {
		t.Errorf("expected no payment call")
	}
	if sess.Cart.Len() != 1 {
		t.Errorf("expected cart to be kept")
	}
}

func TestCheckout_PaymentFailureCreatesNoRentals(t *testing.T) {
	r := &fakeRentals{}
	svc := New(&fakePayments{err: payment.ErrDeclined}, r)
	sess := newSession(true, bikeA, bikeB)

	_, err := svc.Checkout(context.Background(), sess, cardRequest())

	var perr *PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PaymentError, got %v", err)
	}
	if !errors.Is(err, payment.ErrDeclined) {
		t.Errorf("expected cause to be kept")
	}
	if r.creates != 0 {
		t.Errorf("expected no rental calls, got %d", r.creates)
	}
	if sess.Cart.Len() != 2 {
		t.Errorf("expected cart to be kept")
	}
}

// The first rental of a failed checkout stays in storage. This pins down the current
// behaviour without compensation.
func TestCheckout_SecondRentalFailsFirstIsKept(t *testing.T) {
	r := &fakeRentals{failOn: 2}
	svc := New(&fakePayments{}, r)
	sess := newSession(true, bikeA, bikeB)

	_, err := svc.Checkout(context.Background(), sess, cardRequest())

	var rerr *RentalCreationError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RentalCreationError, got %v", err)
	}
	if rerr.BikeName != bikeB.Name {
		t.Errorf("expected error to name %q, got %q", bikeB.Name, rerr.BikeName)
	}
	if len(rerr.Created) != 1 || rerr.Compensated {
		t.Errorf("unexpected error details: %s", spew.Sdump(rerr))
	}

	stored, _ := r.ListByUser(context.Background(), "user-1")
	if len(stored) != 1 || stored[0].BikeName != bikeA.Name || stored[0].Status != rental.StatusActive {
		t.Errorf("expected first rental to still be active: %s", spew.Sdump(stored))
	}
	if sess.Cart.Len() != 2 {
		t.Errorf("expected cart to be kept")
	}
}

func TestCheckout_CompensationCancelsCreatedRentals(t *testing.T) {
	r := &fakeRentals{failOn: 2}
	svc := New(&fakePayments{}, r, WithCompensation())

	_, err := svc.Checkout(context.Background(), newSession(true, bikeA, bikeB), cardRequest())

	var rerr *RentalCreationError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RentalCreationError, got %v", err)
	}
	if !rerr.Compensated {
		t.Errorf("expected compensation to be reported")
	}
	if r.stored[0].Status != rental.StatusCancelled {
		t.Errorf("expected first rental to be cancelled, got %s", r.stored[0].Status)
	}
}

func TestCheckout_FailedCompensationIsReported(t *testing.T) {
	r := &fakeRentals{failOn: 2, cancelErr: errors.New("unavailable")}
	svc := New(&fakePayments{}, r, WithCompensation())

	_, err := svc.Checkout(context.Background(), newSession(true, bikeA, bikeB), cardRequest())

	var rerr *RentalCreationError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RentalCreationError, got %v", err)
	}
	if rerr.Compensated {
		t.Errorf("expected compensation to be reported as failed")
	}
}

func TestCheckout_TimeoutIsAPaymentFailure(t *testing.T) {
	p := &fakePayments{block: make(chan struct{})}
	r := &fakeRentals{}
	svc := New(p, r, WithCallTimeout(20*time.Millisecond))

	_, err := svc.Checkout(context.Background(), newSession(true, bikeA), cardRequest())

	var perr *PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PaymentError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if r.creates != 0 {
		t.Errorf("expected no rental calls")
	}
}

func TestCheckout_RejectsConcurrentAttempt(t *testing.T) {
	p := &fakePayments{block: make(chan struct{})}
	svc := New(p, &fakeRentals{})
	sess := newSession(true, bikeA)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(context.Background(), sess, cardRequest())
		done <- err
	}()

	// Wait until the first attempt is inside the payment call.
	deadline := time.Now().Add(time.Second)
	for p.calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first checkout never reached the payment call")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := svc.Checkout(context.Background(), sess, cardRequest())
	if !errors.Is(err, ErrCheckoutInProgress) {
		t.Errorf("expected ErrCheckoutInProgress, got %v", err)
	}

	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}
	if p.calls() != 1 {
		t.Errorf("expected exactly 1 payment call, got %d", p.calls())
	}

	// The guard is released once the attempt is over.
	sess.Cart.Add(bikeB)
	if _, err := svc.Checkout(context.Background(), sess, cardRequest()); err != nil {
		t.Errorf("expected a later checkout to be admitted, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	r := &fakeRentals{}
	svc := New(&fakePayments{}, r)
	sess := newSession(true, bikeA, bikeB)

	receipt, err := svc.Checkout(context.Background(), sess, cardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Complete(context.Background(), sess, receipt.Rentals[0].ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	h, err := svc.History(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Active) != 1 || len(h.Completed) != 1 || len(h.Cancelled) != 0 {
		t.Fatalf("unexpected history: %s", spew.Sdump(h))
	}

	got := h.Completed[0]
	want := receipt.Rentals[0]
	if got.BikeName != want.BikeName || got.TotalPrice != want.TotalPrice || got.RentalHours != want.RentalHours {
		t.Errorf("rental changed on the way back: %s", spew.Sdump(got))
	}
}

func TestHistory_StorageFailure(t *testing.T) {
	svc := New(&fakePayments{}, &fakeRentals{listErr: errors.New("down")})

	h, err := svc.History(context.Background(), newSession(true))

	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if h.Active == nil || len(h.Active) != 0 {
		t.Errorf("expected empty lists alongside the error")
	}
}

func TestHistory_RequiresSignedInUser(t *testing.T) {
	svc := New(&fakePayments{}, &fakeRentals{})

	_, err := svc.History(context.Background(), newSession(false))
	if !errors.Is(err, ErrAuthRequired) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
}
