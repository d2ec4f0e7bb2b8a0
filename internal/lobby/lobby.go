// Package lobby persists the long-lived lobby records that outlast any one
// game session: name, host, settings, creation time. The game coordinator
// reads host settings from here at start and deletes the record at game
// end.
package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/illustrators/illustrators-backend/internal/state"
)

var ErrNotFound = errors.New("lobby not found")

// Record is one persistent lobby document.
type Record struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	HostID      string         `json:"host_id"`
	Settings    state.Settings `json:"settings"`
	GameStarted bool           `json:"game_started"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Store is the persistent lobby record contract.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	SetGameStarted(ctx context.Context, id string, started bool) error
	Delete(ctx context.Context, id string) error
}

// MemStore keeps lobby records in process memory. Used when no database is
// configured and throughout the test suite.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

func (m *MemStore) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemStore) SetGameStarted(_ context.Context, id string, started bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.GameStarted = started
	m.records[id] = rec
	return nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}
