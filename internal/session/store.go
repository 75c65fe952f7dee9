package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// Store keeps sessions by id
type Store interface {
	Create(s *Session) error
	Get(id string) (Session, error)
	Update(id string, fn func(*Session) error) (Session, error)
	Delete(id string) error
	Len() int
}

// MemoryStore is a mutex-guarded in-process Store. Sessions are stored as
// private copies so callers never share allocation maps.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("%w: session %s already exists", domain.ErrInvalidInput, s.ID)
	}
	cp := s.Snapshot()
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s.Snapshot(), nil
}

// Update runs fn on a working copy under the store lock and commits it only
// when fn succeeds.
func (m *MemoryStore) Update(id string, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	work := s.Snapshot()
	if err := fn(&work); err != nil {
		return s.Snapshot(), err
	}
	m.sessions[id] = &work
	return work.Snapshot(), nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many were removed.
func (m *MemoryStore) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.UpdatedAt) > maxIdle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
