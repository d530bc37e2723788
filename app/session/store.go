package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps sessions in memory with a sliding TTL. Every accessor touches
// the session, so only genuinely abandoned conversations expire.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a session store with the given sliding TTL
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns a snapshot of the user's session, creating a fresh one if
// none exists or the existing one has expired. The snapshot is detached
// from the store; mutations go through Update.
func (st *Store) Get(userID int64) Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[userID]
	if !ok || st.expired(s) {
		s = newSession(userID)
		st.sessions[userID] = s
	}
	s.UpdatedAt = st.now()

	snap := *s
	snap.Stack = append([]Step(nil), s.Stack...)
	return snap
}

// Update runs fn against the user's session under the store lock
func (st *Store) Update(userID int64, fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[userID]
	if !ok || st.expired(s) {
		s = newSession(userID)
		st.sessions[userID] = s
	}
	fn(s)
	s.UpdatedAt = st.now()
}

// Delete removes a user's session outright
func (st *Store) Delete(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

// Len reports the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartJanitor sweeps expired sessions until the context is cancelled
func (st *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.sweep()
			}
		}
	}()
}

func (st *Store) sweep() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		if st.expired(s) {
			delete(st.sessions, id)
		}
	}
}

func (st *Store) expired(s *Session) bool {
	return st.now().Sub(s.UpdatedAt) > st.ttl
}
