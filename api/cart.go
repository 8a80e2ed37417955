package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/campusbike/cart"
	"github.com/semanticallynull/campusbike/catalog"
	"github.com/semanticallynull/campusbike/internal/middleware"
)

type cartResponse struct {
	Items    []cart.Line `json:"items"`
	Count    int         `json:"count"`
	Subtotal float64     `json:"subtotal"`
}

func toCartResponse(ct *cart.Cart) cartResponse {
	// One snapshot, so items and subtotal always agree.
	lines := ct.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{
		Items:    lines,
		Count:    len(lines),
		Subtotal: cart.Subtotal(lines),
	}
}

type addCartItemRequest struct {
	BikeID int `json:"bikeId" binding:"required"`
}

func (a *API) getCartHandler(c *gin.Context) {
	sess := middleware.GetSession(c)
	c.JSON(http.StatusOK, toCartResponse(sess.Cart))
}

func (a *API) addCartItemHandler(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	b, err := a.cat.Get(req.BikeID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusOK
	if sess.Cart.Add(b) {
		status = http.StatusCreated
	}
	c.JSON(status, toCartResponse(sess.Cart))
}

func (a *API) removeCartItemHandler(c *gin.Context) {
	sess := middleware.GetSession(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid bike id"})
		return
	}

	sess.Cart.Remove(id)
	c.JSON(http.StatusOK, toCartResponse(sess.Cart))
}

func (a *API) clearCartHandler(c *gin.Context) {
	sess := middleware.GetSession(c)
	sess.Cart.Clear()
	c.JSON(http.StatusOK, toCartResponse(sess.Cart))
}
