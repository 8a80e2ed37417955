package auth0

import (
	"context"
	"sync"
)

// FakeClient is a test implementation of Client
type FakeClient struct {
	mu        sync.Mutex
	Users     map[string]*UserInfo // keyed by access token
	Passwords map[string]string    // keyed by email
	Codes     map[string]string    // provider login codes, code -> email
	Resets    []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Users:     make(map[string]*UserInfo),
		Passwords: make(map[string]string),
		Codes:     make(map[string]string),
	}
}

func (c *FakeClient) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if user, ok := c.Users[accessToken]; ok {
		return user, nil
	}
	return nil, ErrUserInfoFailed
}

func (c *FakeClient) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pw, ok := c.Passwords[email]; !ok || pw != password {
		return nil, ErrSignInFailed
	}
	token := "token-" + email
	if _, ok := c.Users[token]; !ok {
		c.Users[token] = &UserInfo{Sub: "auth0|" + email, Email: email}
	}
	return &Tokens{AccessToken: token, TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (c *FakeClient) SignUp(ctx context.Context, email, password string) (*UserInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Passwords[email]; ok {
		return nil, ErrSignUpFailed
	}
	c.Passwords[email] = password
	return &UserInfo{Sub: "auth0|" + email, Email: email}, nil
}

func (c *FakeClient) SendPasswordReset(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Resets = append(c.Resets, email)
	return nil
}

func (c *FakeClient) ProviderLoginURL(state string) string {
	return "https://fake.auth0/authorize?state=" + state
}

func (c *FakeClient) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	email, ok := c.Codes[code]
	if !ok {
		return nil, ErrCodeExchangeFailed
	}
	delete(c.Codes, code)
	token := "token-" + email
	if _, ok := c.Users[token]; !ok {
		c.Users[token] = &UserInfo{Sub: "google-oauth2|" + email, Email: email}
	}
	return &Tokens{AccessToken: token, TokenType: "Bearer", ExpiresIn: 3600}, nil
}

// AddUser adds a user to the fake for testing
func (c *FakeClient) AddUser(accessToken string, info *UserInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Users[accessToken] = info
}
