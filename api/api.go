package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/campusbike/catalog"
	"github.com/semanticallynull/campusbike/checkout"
	"github.com/semanticallynull/campusbike/internal/auth0"
	"github.com/semanticallynull/campusbike/internal/middleware"
	"github.com/semanticallynull/campusbike/internal/o11y"
	"github.com/semanticallynull/campusbike/session"
)

type API struct {
	r   *gin.Engine
	cat *catalog.Catalog
	ss  *session.Store
	cs  *checkout.Service
	idp auth0.Client
}

// New wires the routes. authn authenticates bearer tokens; it must let anonymous
// requests through.
func New(
	cat *catalog.Catalog,
	ss *session.Store,
	cs *checkout.Service,
	idp auth0.Client,
	obs *o11y.Observability,
	authn gin.HandlerFunc,
	metricsUsername, metricsPassword string,
) *API {
	a := &API{
		r:   gin.New(),
		cat: cat,
		ss:  ss,
		cs:  cs,
		idp: idp,
	}

	a.r.Use(
		gin.Recovery(),
		middleware.Tracing(),
		middleware.Logging(obs.Logger),
		middleware.Metrics(obs.Registry),
	)

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsUsername != "" {
		a.r.GET("/metrics",
			gin.BasicAuth(gin.Accounts{metricsUsername: metricsPassword}),
			gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})),
		)
	}

	a.r.GET("/bikes", a.bikesHandler)
	a.r.GET("/bikes/:id", a.bikeHandler)
	a.r.GET("/locations", a.locationsHandler)

	s := a.r.Group("/", authn, middleware.Session(ss))
	{
		s.GET("/cart", a.getCartHandler)
		s.POST("/cart/items", a.addCartItemHandler)
		s.DELETE("/cart/items/:id", a.removeCartItemHandler)
		s.DELETE("/cart", a.clearCartHandler)

		s.POST("/checkout", a.checkoutHandler)

		s.GET("/rentals", a.rentalHistoryHandler)
		s.POST("/rentals/:id/complete", a.completeRentalHandler)
		s.POST("/rentals/:id/cancel", a.cancelRentalHandler)

		s.POST("/auth/signin", a.signInHandler)
		s.POST("/auth/signup", a.signUpHandler)
		s.POST("/auth/password-reset", a.passwordResetHandler)
		s.POST("/auth/signout", a.signOutHandler)
		s.GET("/auth/provider", a.providerHandler)
		s.GET("/auth/callback", a.providerCallbackHandler)
		s.GET("/auth/me", a.meHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}
