package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/campusbike/checkout"
	"github.com/semanticallynull/campusbike/internal/middleware"
	"github.com/semanticallynull/campusbike/rental"
	"github.com/semanticallynull/campusbike/session"
)

func (a *API) rentalHistoryHandler(c *gin.Context) {
	sess := middleware.GetSession(c)

	h, err := a.cs.History(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, checkout.ErrAuthRequired) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":     "UNAUTHORIZED",
				"message":  "Authentication required",
				"redirect": "/login?next=/rentals",
			})
			return
		}
		// The history view still renders, with empty lists.
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":      "STORAGE_ERROR",
			"message":   "Failed to load rentals",
			"active":    h.Active,
			"completed": h.Completed,
			"cancelled": h.Cancelled,
		})
		return
	}

	c.JSON(http.StatusOK, h)
}

func (a *API) completeRentalHandler(c *gin.Context) {
	a.transitionHandler(c, a.cs.Complete)
}

func (a *API) cancelRentalHandler(c *gin.Context) {
	a.transitionHandler(c, a.cs.Cancel)
}

func (a *API) transitionHandler(c *gin.Context, fn func(context.Context, *session.Session, uuid.UUID) (rental.Rental, error)) {
	logger := middleware.GetLogger(c)
	sess := middleware.GetSession(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rental id"})
		return
	}

	rt, err := fn(c.Request.Context(), sess, id)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrAuthRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		case errors.Is(err, rental.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "RENTAL_NOT_FOUND", "message": "Rental not found"})
		case errors.Is(err, rental.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"code": "NOT_AUTHORIZED", "message": "Not authorized to modify this rental"})
		case errors.Is(err, rental.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"code": "RENTAL_NOT_ACTIVE", "message": "Rental is not active"})
		default:
			logger.ErrorContext(c, "failed to update rental", "rental", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, rt)
}
