package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the process-wide set of live sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore creates a Store. Sessions idle for longer than idleTTL are dropped by Sweep;
// a zero idleTTL keeps sessions until they are deleted.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: map[uuid.UUID]*Session{},
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Get returns the session with the given id, if it exists.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// Start creates and registers a new session.
func (st *Store) Start() *Session {
	s := New()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
	return s
}

// GetOrStart returns the session for id, or starts a new one when id is unknown.
func (st *Store) GetOrStart(id uuid.UUID) *Session {
	if s, ok := st.Get(id); ok {
		return s
	}
	return st.Start()
}

func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops idle sessions and returns how many were removed.
func (st *Store) Sweep() int {
	if st.idleTTL <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.idleTTL {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}
