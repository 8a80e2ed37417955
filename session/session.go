// Package session holds the per-visitor state the storefront works with: the cart and
// the signed-in user.
package session

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/campusbike/cart"
)

// User is the identity of a signed-in visitor.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

type Session struct {
	ID        uuid.UUID
	Cart      *cart.Cart
	CreatedAt time.Time

	mu        sync.Mutex
	user      *User
	lastSeen  time.Time
	listeners map[int]func(*User)
	nextID    int
	// providerState is the pending social login nonce, empty when none is pending.
	providerState string
}

func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Cart:      cart.New(),
		CreatedAt: now,
		lastSeen:  now,
		listeners: map[int]func(*User){},
	}
}

// CurrentUser returns the signed-in user, or nil.
func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser records u as the signed-in user. Listeners are notified only when the user
// actually changes.
func (s *Session) SetUser(u *User) {
	s.mu.Lock()
	if sameUser(s.user, u) {
		s.mu.Unlock()
		return
	}
	if u != nil {
		cp := *u
		u = &cp
	}
	s.user = u
	fns := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(s.CurrentUser())
	}
}

func (s *Session) SignOut() {
	s.SetUser(nil)
}

// OnAuthChange calls fn with the current user immediately and then on every sign-in or
// sign-out. The returned func removes the subscription.
func (s *Session) OnAuthChange(fn func(*User)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	fn(s.CurrentUser())

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// NewProviderState starts a social login and returns the nonce the provider must echo
// back. It replaces any login still pending.
func (s *Session) NewProviderState() string {
	state := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providerState = state
	return state
}

// ConsumeProviderState reports whether state matches the pending social login. A match
// ends it, so each nonce is accepted once.
func (s *Session) ConsumeProviderState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.providerState == "" || subtle.ConstantTimeCompare([]byte(s.providerState), []byte(state)) != 1 {
		return false
	}
	s.providerState = ""
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) snapshotListeners() []func(*User) {
	fns := make([]func(*User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
