package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// CustomClaims are the non-registered claims the API reads from access tokens.
type CustomClaims struct {
	Email string `json:"email"`
}

func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// JWT validates Auth0 access tokens. Requests without a token pass through anonymously;
// requests with an invalid token are rejected.
func JWT(domain, audience string) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	m := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"UNAUTHORIZED","message":"Invalid access token"}`))
		}),
	)

	return adapter.Wrap(m.CheckJWT), nil
}

// GetAuth0ID extracts the user ID (sub claim) from the JWT token in the Gin context
func GetAuth0ID(c *gin.Context) (string, bool) {
	claims, ok := validatedClaims(c)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return "", false
	}
	return claims.RegisteredClaims.Subject, true
}

// GetEmail returns the email claim of the access token, if there is one.
func GetEmail(c *gin.Context) string {
	claims, ok := validatedClaims(c)
	if !ok {
		return ""
	}
	if cc, ok := claims.CustomClaims.(*CustomClaims); ok {
		return cc.Email
	}
	return ""
}

func validatedClaims(c *gin.Context) (*validator.ValidatedClaims, bool) {
	// The JWT middleware stores the validated token in the request context
	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	return claims, ok && claims != nil
}

// WithClaims stores claims the same way the JWT middleware does, for tests and fake
// authenticators.
func WithClaims(ctx context.Context, subject, email string) context.Context {
	return context.WithValue(ctx, jwtmiddleware.ContextKey{}, &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: subject},
		CustomClaims:     &CustomClaims{Email: email},
	})
}
