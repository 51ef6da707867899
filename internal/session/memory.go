package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   Config
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(config Config) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		config:   config,
	}
}

// Create creates a new anonymous session
func (m *MemoryStore) Create(ctx context.Context) (*Session, error) {
	s := newSession(uuid.New().String(), m.config.TTL)

	m.mu.Lock()
	m.sessions[s.ID] = s.Clone()
	m.mu.Unlock()

	return s, nil
}

// Get retrieves a copy of the session
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrExpired, id)
	}
	return s.Clone(), nil
}

// Save stores s and extends its expiry
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	s.ExpiresAt = s.UpdatedAt.Add(m.config.TTL)

	m.mu.Lock()
	m.sessions[s.ID] = s.Clone()
	m.mu.Unlock()
	return nil
}

// Delete removes the session
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Count returns the number of unexpired sessions
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, s := range m.sessions {
		if !s.Expired(now) {
			n++
		}
	}
	return n, nil
}

// Prune drops expired sessions
func (m *MemoryStore) Prune(ctx context.Context) (int64, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
