// Package storage provides memory.Store implementations: Redis (primary),
// Postgres, and an in-process store for tests or when no backend is
// configured.
package storage

import (
	"context"
	"sync"

	"strategy-memory/internal/memory"
)

// MemoryStore keeps the snapshot in process memory. State is lost on
// restart; it exists for tests and for running without a persistence
// backend.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *memory.Snapshot
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*memory.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, nil
	}
	return copySnapshot(s.snap), nil
}

func (s *MemoryStore) Save(ctx context.Context, snap *memory.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = copySnapshot(snap)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = nil
	return nil
}

func copySnapshot(snap *memory.Snapshot) *memory.Snapshot {
	records := make([]memory.TradeRecord, len(snap.Records))
	copy(records, snap.Records)
	return &memory.Snapshot{Records: records, UpdatedAt: snap.UpdatedAt}
}
