package turn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the exclusive right to run one provider call for one user.
type Session struct {
	ID         string
	UserID     string
	AcquiredAt time.Time
	cancel     context.CancelFunc
}

// Registry maps user IDs to their active session slot. Acquisition is an
// atomic check-and-set: one winner per user, losers fail immediately and are
// never queued. The registry lock is held only for map operations, never
// across a turn, so users do not contend with each other.
type Registry struct {
	mu     sync.Mutex
	active map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*Session)}
}

// Acquire claims the slot for a user. The cancel func is invoked if a caller
// later cancels the turn through CancelActive.
func (r *Registry) Acquire(userID string, cancel context.CancelFunc) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.active[userID]; held {
		return nil, ErrConcurrentTurn
	}
	s := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		AcquiredAt: time.Now().UTC(),
		cancel:     cancel,
	}
	r.active[userID] = s
	return s, nil
}

// Release frees the slot. Only the current holder is removed, so a stale
// release after a cancel-and-reacquire cannot evict the new turn.
func (r *Registry) Release(s *Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.active[s.UserID]; ok && held.ID == s.ID {
		delete(r.active, s.UserID)
	}
}

// CancelActive cancels the in-flight turn for a user, if any. The slot itself
// is released by the turn as it unwinds.
func (r *Registry) CancelActive(userID string) bool {
	r.mu.Lock()
	s, ok := r.active[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.cancel()
	return true
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
