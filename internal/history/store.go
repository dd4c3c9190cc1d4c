// Package history owns conversation history outside the response pipeline.
//
// The orchestrator depends only on the Store interface; the in-memory
// implementation below mirrors production needs for a single-process
// deployment (per-user bounded sequences with FIFO eviction). A persistent
// or TTL-backed implementation can be swapped in without touching the
// pipeline.
package history

import (
	"sync"

	"github.com/mindloom/support-backend/internal/domain"
)

// MaxTurns is the per-user cap on stored conversation turns. When the cap
// is exceeded, the oldest turns are evicted first.
const MaxTurns = 50

// Store is the conversation-history contract consumed by the orchestrator
// and the HTTP layer.
type Store interface {
	// List returns the user's turns in chronological order. The returned
	// slice is a copy and safe to retain.
	List(userID string) []domain.Turn
	// Append adds turns for the user, evicting the oldest entries beyond
	// the cap.
	Append(userID string, turns ...domain.Turn)
	// Clear discards all turns for the user.
	Clear(userID string)
}

// MemoryStore is a map-backed Store keyed by user id. Appends for the same
// user are serialized by a single mutex; cross-user operations do not
// contend on anything beyond that map lock.
type MemoryStore struct {
	mu    sync.Mutex
	turns map[string][]domain.Turn
	cap   int
}

// NewMemoryStore returns an empty in-memory store with the default cap.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]domain.Turn), cap: MaxTurns}
}

// List implements Store.
func (s *MemoryStore) List(userID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.turns[userID]
	out := make([]domain.Turn, len(src))
	copy(out, src)
	return out
}

// Append implements Store.
func (s *MemoryStore) Append(userID string, turns ...domain.Turn) {
	if len(turns) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := append(s.turns[userID], turns...)
	if over := len(seq) - s.cap; over > 0 {
		seq = seq[over:]
	}
	s.turns[userID] = seq
}

// Clear implements Store.
func (s *MemoryStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, userID)
}
