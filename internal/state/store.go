package state

import (
	"context"
	"sync"
	"time"
)

// Store is the TTL-bounded key-value store sessions persist in. The
// production deployment may back this with any shared store; the in-memory
// implementation below is the default for a single-process coordinator.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemStore is an in-process Store with per-key TTLs and a background
// janitor that drops expired entries.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	done    chan struct{}
	closed  sync.Once
}

// NewMemStore starts a MemStore whose janitor sweeps at the given interval.
func NewMemStore(sweepInterval time.Duration) *MemStore {
	m := &MemStore{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}
	go m.janitor(sweepInterval)
	return m
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Close stops the janitor. Safe to call more than once.
func (m *MemStore) Close() {
	m.closed.Do(func() { close(m.done) })
}

func (m *MemStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
