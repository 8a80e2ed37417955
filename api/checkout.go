package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/campusbike/checkout"
	"github.com/semanticallynull/campusbike/internal/middleware"
	"github.com/semanticallynull/campusbike/payment"
	"github.com/semanticallynull/campusbike/rental"
)

// hoursInput accepts the duration either as a JSON number or as the string typed into
// the form.
type hoursInput string

func (h *hoursInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*h = hoursInput(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*h = ""
		return nil
	}
	*h = hoursInput(b)
	return nil
}

type checkoutRequest struct {
	PickupLocation  string                 `json:"pickupLocation"`
	DropoffLocation string                 `json:"dropoffLocation"`
	RentalHours     hoursInput             `json:"rentalHours"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Card            checkout.CardDetails   `json:"card"`
	Dining          checkout.DiningDetails `json:"dining"`
	PaymentToken    string                 `json:"paymentToken"`
}

type checkoutResponse struct {
	*checkout.Receipt
	Redirect string `json:"redirect"`
}

func (a *API) checkoutHandler(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	receipt, err := a.cs.Checkout(c.Request.Context(), sess, checkout.Request{
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		RentalHours:     string(req.RentalHours),
		PaymentMethod:   rental.PaymentMethod(req.PaymentMethod),
		Card:            req.Card,
		Dining:          req.Dining,
		PaymentToken:    req.PaymentToken,
	})
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{Receipt: receipt, Redirect: "/rentals"})
}

func writeCheckoutError(c *gin.Context, err error) {
	var (
		verr *checkout.ValidationError
		perr *checkout.PaymentError
		uerr *payment.UnrecordedChargeError
		rerr *checkout.RentalCreationError
	)

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.Header("Location", "/cart")
		c.JSON(http.StatusSeeOther, gin.H{"code": "CART_EMPTY", "message": "Your cart is empty", "redirect": "/cart"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": verr.Reason})
	case errors.Is(err, checkout.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":     "UNAUTHORIZED",
			"message":  "Authentication required",
			"redirect": "/login?next=" + c.Request.URL.Path,
		})
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"code": "CHECKOUT_IN_PROGRESS", "message": "A checkout is already in progress"})
	case errors.As(err, &uerr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":      "PAYMENT_NOT_RECORDED",
			"message":   "Your payment was taken but could not be recorded",
			"paymentId": uerr.ChargeID,
		})
	case errors.As(err, &perr):
		c.JSON(http.StatusBadGateway, gin.H{"code": "PAYMENT_FAILED", "message": "Payment could not be processed"})
	case errors.As(err, &rerr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":        "RENTAL_CREATION_FAILED",
			"message":     "Failed to create rental for " + rerr.BikeName,
			"bikeName":    rerr.BikeName,
			"paymentId":   rerr.PaymentID,
			"created":     rerr.Created,
			"compensated": rerr.Compensated,
		})
	default:
		middleware.GetLogger(c).ErrorContext(c, "checkout failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
