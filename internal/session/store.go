package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Store persists sessions by id. Implementations must be safe for concurrent use
// and Clear must succeed for ids that do not exist.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Set(ctx context.Context, s Session) error
	Clear(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory; for dev and tests.
type MemoryStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	state map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates a store whose entries expire after ttl (0 = never).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		state: make(map[string]memoryEntry),
	}
}

// Get returns the session stored under id.
func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	entry, ok := m.state[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		_ = m.Clear(context.Background(), id)
		return Session{}, ErrNotFound
	}
	return Decode(entry.data)
}

// Set stores a session, replacing any previous record with the same id.
func (m *MemoryStore) Set(_ context.Context, s Session) error {
	if s.ID == "" {
		return errors.New("session id required")
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.state[s.ID] = entry
	m.mu.Unlock()
	return nil
}

// Clear removes a session.
func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.state, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state)
}
