package auth0

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrUserInfoFailed      = errors.New("failed to fetch user info")
	ErrSignInFailed        = errors.New("sign in failed")
	ErrSignUpFailed        = errors.New("sign up failed")
	ErrPasswordResetFailed = errors.New("password reset failed")
	ErrCodeExchangeFailed  = errors.New("authorization code exchange failed")
)

// UserInfo represents the response from Auth0's /userinfo endpoint
type UserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
	Picture       string `json:"picture"`
}

// Tokens is what a successful password sign in returns.
type Tokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Client is an interface for Auth0 API operations
type Client interface {
	GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
	SignIn(ctx context.Context, email, password string) (*Tokens, error)
	SignUp(ctx context.Context, email, password string) (*UserInfo, error)
	SendPasswordReset(ctx context.Context, email string) error
	// ProviderLoginURL is where to send a visitor signing in with the social provider.
	ProviderLoginURL(state string) string
	// ExchangeCode trades the code the provider login redirected back with for tokens.
	ExchangeCode(ctx context.Context, code string) (*Tokens, error)
}

type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Audience     string
	// Connection is the database connection used for email/password accounts.
	Connection string
	// SocialConnection is the identity provider used by ProviderLoginURL (e.g. "google-oauth2").
	SocialConnection string
	RedirectURL      string
}

// HTTPClient implements Client using real HTTP calls
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) baseURL() string {
	return fmt.Sprintf("https://%s", c.cfg.Domain)
}

func (c *HTTPClient) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	var userInfo UserInfo
	if err := c.do(req, &userInfo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}

	return &userInfo, nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	body := map[string]string{
		"grant_type":    "password",
		"username":      email,
		"password":      password,
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"audience":      c.cfg.Audience,
		"scope":         "openid profile email",
	}

	var tokens Tokens
	if err := c.post(ctx, "/oauth/token", body, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}
	return &tokens, nil
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (*UserInfo, error) {
	body := map[string]string{
		"client_id":  c.cfg.ClientID,
		"email":      email,
		"password":   password,
		"connection": c.cfg.Connection,
	}

	var created struct {
		ID    string `json:"_id"`
		Email string `json:"email"`
	}
	if err := c.post(ctx, "/dbconnections/signup", body, &created); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignUpFailed, err)
	}
	return &UserInfo{Sub: "auth0|" + created.ID, Email: created.Email}, nil
}

func (c *HTTPClient) SendPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{
		"client_id":  c.cfg.ClientID,
		"email":      email,
		"connection": c.cfg.Connection,
	}
	if err := c.post(ctx, "/dbconnections/change_password", body, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordResetFailed, err)
	}
	return nil
}

func (c *HTTPClient) ProviderLoginURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("connection", c.cfg.SocialConnection)
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("scope", "openid profile email")
	q.Set("state", state)
	if c.cfg.Audience != "" {
		q.Set("audience", c.cfg.Audience)
	}
	return c.baseURL() + "/authorize?" + q.Encode()
}

func (c *HTTPClient) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	body := map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"code":          code,
		"redirect_uri":  c.cfg.RedirectURL,
	}

	var tokens Tokens
	if err := c.post(ctx, "/oauth/token", body, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}
	return &tokens, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
