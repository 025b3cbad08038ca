// Package session provides the injected session store used by the
// orchestrator. The key is opaque: deployments pass either a conversation id
// or a user id.
package session

import (
	"sync"

	"github.com/medassist/orchestrator/internal/domain"
)

// Store holds transient per-conversation state. Implementations may be
// backed by a process-local map, a distributed cache, or a database.
type Store interface {
	Get(sessionID string) (*domain.Session, bool)
	GetOrCreate(sessionID string) *domain.Session
	Put(sessionID string, sess *domain.Session)
	Delete(sessionID string)

	// Acquire takes the per-session lock and returns the release func. Turns
	// for the same session must not interleave; turns for different sessions
	// proceed in parallel.
	Acquire(sessionID string) func()
}

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	locks    map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) Get(sessionID string) (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

func (m *MemoryStore) GetOrCreate(sessionID string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sessionID]; ok {
		return sess
	}
	sess := domain.NewSession(sessionID)
	m.sessions[sessionID] = sess
	return sess
}

func (m *MemoryStore) Put(sessionID string, sess *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = sess
}

func (m *MemoryStore) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Acquire locks the session. The lock entry outlives session deletion so a
// wipe while another turn is queued stays safe.
func (m *MemoryStore) Acquire(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
