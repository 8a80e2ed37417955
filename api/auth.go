package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/campusbike/internal/auth0"
	"github.com/semanticallynull/campusbike/internal/middleware"
	"github.com/semanticallynull/campusbike/session"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type signInResponse struct {
	User        session.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int          `json:"expiresIn"`
}

func (a *API) signInHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}
	a.signIn(c, req.Email, req.Password)
}

func (a *API) signUpHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if _, err := a.idp.SignUp(c.Request.Context(), req.Email, req.Password); err != nil {
		logger.WarnContext(c, "sign up failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": "SIGN_UP_FAILED", "message": "Could not create account"})
		return
	}

	// New accounts are signed in straight away.
	a.signIn(c, req.Email, req.Password)
}

func (a *API) signIn(c *gin.Context, email, password string) {
	logger := middleware.GetLogger(c)

	tokens, err := a.idp.SignIn(c.Request.Context(), email, password)
	if err != nil {
		logger.InfoContext(c, "sign in failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_CREDENTIALS", "message": "Invalid email or password"})
		return
	}

	a.adoptTokens(c, tokens)
}

// adoptTokens signs the session in as the owner of tokens.
func (a *API) adoptTokens(c *gin.Context, tokens *auth0.Tokens) {
	logger := middleware.GetLogger(c)
	sess := middleware.GetSession(c)

	info, err := a.idp.GetUserInfo(c.Request.Context(), tokens.AccessToken)
	if err != nil {
		logger.ErrorContext(c, "failed to fetch user info", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"code": "IDENTITY_UNAVAILABLE", "message": "Could not load user profile"})
		return
	}

	user := session.User{UID: info.Sub, Email: info.Email}
	sess.SetUser(&user)

	c.JSON(http.StatusOK, signInResponse{
		User:        user,
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.ExpiresIn,
	})
}

func (a *API) passwordResetHandler(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	err := a.idp.SendPasswordReset(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, auth0.ErrPasswordResetFailed) {
		middleware.GetLogger(c).ErrorContext(c, "password reset failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err != nil {
		middleware.GetLogger(c).WarnContext(c, "password reset rejected", "error", err)
	}

	// Same answer whether or not the account exists.
	c.JSON(http.StatusAccepted, gin.H{"message": "If the account exists, a reset email has been sent"})
}

func (a *API) signOutHandler(c *gin.Context) {
	middleware.GetSession(c).SignOut()
	c.Status(http.StatusNoContent)
}

func (a *API) providerHandler(c *gin.Context) {
	state := middleware.GetSession(c).NewProviderState()
	c.JSON(http.StatusOK, gin.H{"url": a.idp.ProviderLoginURL(state)})
}

type providerCallbackQuery struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required"`
}

// providerCallbackHandler finishes a social login with the code and state the provider
// redirected back with.
func (a *API) providerCallbackHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	sess := middleware.GetSession(c)

	var q providerCallbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if !sess.ConsumeProviderState(q.State) {
		logger.WarnContext(c, "provider callback with unexpected state")
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STATE", "message": "Sign in was not started from this session"})
		return
	}

	tokens, err := a.idp.ExchangeCode(c.Request.Context(), q.Code)
	if err != nil {
		logger.InfoContext(c, "provider code exchange failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"code": "PROVIDER_SIGN_IN_FAILED", "message": "Could not sign in with provider"})
		return
	}

	a.adoptTokens(c, tokens)
}

func (a *API) meHandler(c *gin.Context) {
	user := middleware.GetSession(c).CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}
