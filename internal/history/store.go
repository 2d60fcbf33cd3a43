// Package history keeps the per-user conversational turn log in process
// memory. The log is deliberately not persisted: a restart starts every user
// from a clean slate, and long-lived facts belong to the semantic memory
// provider instead.
package history

import (
	"sync"
	"time"
)

// Turn is one user utterance and its finalized assistant reply.
type Turn struct {
	UserID        string    `json:"user_id"`
	UserText      string    `json:"user_message"`
	AssistantText string    `json:"assistant_response"`
	CreatedAt     time.Time `json:"timestamp"`
}

// Store holds a bounded FIFO log of turns per user. Operations on one user
// never block operations on another: the outer lock only guards the map of
// per-user logs, each of which carries its own mutex.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userLog
	cap   int
}

type userLog struct {
	mu    sync.Mutex
	turns []Turn
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 20
	}
	return &Store{
		users: make(map[string]*userLog),
		cap:   capacity,
	}
}

// Capacity returns the per-user turn cap.
func (s *Store) Capacity() int { return s.cap }

func (s *Store) logFor(userID string, create bool) *userLog {
	s.mu.RLock()
	l, ok := s.users[userID]
	s.mu.RUnlock()
	if ok || !create {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.users[userID]; ok {
		return l
	}
	l = &userLog{}
	s.users[userID] = l
	return l
}

// Append adds a completed turn, evicting the oldest once the cap is reached.
func (s *Store) Append(userID string, turn Turn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	turn.UserID = userID

	l := s.logFor(userID, true)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
	if len(l.turns) > s.cap {
		// FIFO eviction; copy so the backing array does not pin old turns.
		trimmed := make([]Turn, s.cap)
		copy(trimmed, l.turns[len(l.turns)-s.cap:])
		l.turns = trimmed
	}
}

// Recent returns the last min(k, length) turns in chronological order; k <= 0
// means all stored turns. The result is a snapshot and safe to retain.
func (s *Store) Recent(userID string, k int) []Turn {
	l := s.logFor(userID, false)
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.turns) == 0 {
		return nil
	}
	if k <= 0 || k > len(l.turns) {
		k = len(l.turns)
	}
	out := make([]Turn, k)
	copy(out, l.turns[len(l.turns)-k:])
	return out
}

// Count reports the number of stored turns for a user.
func (s *Store) Count(userID string) int {
	l := s.logFor(userID, false)
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Clear drops all turns for a user. Clearing an unknown user is a no-op.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// Stats reports user and turn totals across the store.
func (s *Store) Stats() (users, turns int) {
	s.mu.RLock()
	logs := make([]*userLog, 0, len(s.users))
	for _, l := range s.users {
		logs = append(logs, l)
	}
	s.mu.RUnlock()

	for _, l := range logs {
		l.mu.Lock()
		n := len(l.turns)
		l.mu.Unlock()
		if n > 0 {
			users++
			turns += n
		}
	}
	return users, turns
}
