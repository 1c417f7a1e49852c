package chat

import (
	"strings"
	"sync"
)

// DefaultContextTurns is how many trailing turns feed the reply generator.
const DefaultContextTurns = 10

// SessionStore keeps ordered dialogue turns per family. Sessions are an aid
// for continuity only; the persisted profile is the source of truth.
type SessionStore interface {
	Append(familyID string, turn Turn)
	RecentWindow(familyID string, n int) []Turn
	History(familyID string) []Turn
	Clear(familyID string)
	// Lock serializes work for one family. The returned func releases it.
	Lock(familyID string) func()
}

// MemorySessionStore is the in-process SessionStore. Memory held per family
// is unbounded; only the generation window is bounded.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn

	locksMu sync.Mutex
	locks   map[string]*familyLock
}

type familyLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string][]Turn),
		locks:    make(map[string]*familyLock),
	}
}

func (s *MemorySessionStore) Append(familyID string, turn Turn) {
	key := sessionKey(familyID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = append(s.sessions[key], turn)
}

func (s *MemorySessionStore) RecentWindow(familyID string, n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionKey(familyID)]
	if len(turns) == 0 {
		return []Turn{}
	}
	if n <= 0 || n > len(turns) {
		n = len(turns)
	}
	out := make([]Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}

func (s *MemorySessionStore) History(familyID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionKey(familyID)]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *MemorySessionStore) Clear(familyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(familyID))
}

// Len reports how many families currently hold a session.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) Lock(familyID string) func() {
	key := sessionKey(familyID)

	s.locksMu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &familyLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()
			s.locksMu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(s.locks, key)
			}
			s.locksMu.Unlock()
		})
	}
}

func sessionKey(familyID string) string {
	return strings.TrimSpace(familyID)
}
