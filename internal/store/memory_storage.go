package store

import (
	"context"
	"encoding/json"
	"sync"

	"signclient/internal/domain"
)

// Compile-time assertion that MemoryStorage implements domain.Storage.
var _ domain.Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps JSON-encoded values in a map.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string][]byte{}}
}

// GetItem decodes the value at key into out.
func (s *MemoryStorage) GetItem(_ context.Context, key string, out any) (bool, error) {
	s.mu.RLock()
	b, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

// SetItem stores value at key.
func (s *MemoryStorage) SetItem(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[key] = b
	s.mu.Unlock()
	return nil
}

// RemoveItem deletes key.
func (s *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error { return nil }
