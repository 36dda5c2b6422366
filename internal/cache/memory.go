package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store used in dev and tests. Entries are
// only ever replaced by overwrite; unbounded growth is an accepted
// limitation at the current per-pet scale.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte, storedAt time.Time) error {
	// Copy to decouple from caller's buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	s.mu.Lock()
	s.items[key] = Entry{
		Data:     dataCopy,
		StoredAt: storedAt,
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of items currently in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear removes all items. Useful for tests or manual resets.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.items = make(map[string]Entry)
	s.mu.Unlock()
}
