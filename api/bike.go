package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/campusbike/catalog"
)

func (a *API) bikesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.cat.List())
}

func (a *API) bikeHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid bike id"})
		return
	}

	b, err := a.cat.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, b)
}

func (a *API) locationsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Locations)
}
