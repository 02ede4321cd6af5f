package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"croissants/internal/app/form"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore — хранилище в памяти процесса, когда Redis не настроен.
// Состояние хранится сериализованным, чтобы вызывающие не делили срезы
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	locks     map[string]time.Time
	ttl       time.Duration
	lockTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// Как часто записи чистят просроченные сессии и блокировки
const sweepInterval = time.Minute

func NewMemoryStore(ttl, lockTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		locks:    make(map[string]time.Time),
		ttl:      ttl,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*form.State, error) {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok && !m.now().Before(entry.expiresAt) {
		delete(m.sessions, sessionID)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return form.NewState(), nil
	}

	st := form.NewState()
	if err := json.Unmarshal(entry.data, st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return st, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, st *form.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	m.sessions[sessionID] = memoryEntry{data: data, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) AcquireSubmit(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	if until, ok := m.locks[sessionID]; ok && now.Before(until) {
		return false, nil
	}
	m.locks[sessionID] = now.Add(m.lockTTL)
	return true, nil
}

func (m *MemoryStore) ReleaseSubmit(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, sessionID)
	return nil
}

func (m *MemoryStore) SubmitInFlight(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.locks[sessionID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.locks, sessionID)
		return false, nil
	}
	return true, nil
}

// sweep удаляет просроченные записи не чаще sweepInterval. Вызывается под m.mu
func (m *MemoryStore) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for id, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, id)
		}
	}
	for id, until := range m.locks {
		if !now.Before(until) {
			delete(m.locks, id)
		}
	}
}
