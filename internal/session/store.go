package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store keeps sessions in memory and forgets them after ttl of inactivity.
type Store struct {
	cache   *cache.Cache
	ttl     time.Duration
	factory func(id string) *Session
}

// NewStore builds a store whose sessions are created by factory.
func NewStore(ttl time.Duration, factory func(id string) *Session) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		cache:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
		factory: factory,
	}
}

// Create starts a new session under a fresh random id.
func (st *Store) Create() *Session {
	id := uuid.NewString()
	s := st.factory(id)
	st.cache.Set(id, s, cache.DefaultExpiration)
	return s
}

// Get returns the session and extends its lifetime.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	if !ok {
		return nil, false
	}
	st.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown or
// expired. created reports which.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Delete forgets a session.
func (st *Store) Delete(id string) { st.cache.Delete(id) }

// Len counts live sessions.
func (st *Store) Len() int { return st.cache.ItemCount() }

// TTL is the inactivity window after which sessions expire.
func (st *Store) TTL() time.Duration { return st.ttl }
