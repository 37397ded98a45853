package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"signclient/internal/domain"
)

// Key is the set of key types a Store can be indexed by: topics or ids.
type Key interface {
	~string | ~int64
}

// Store is an in-memory table of values persisted to Storage as a list on
// every change. Restore happens once, in Init.
type Store[K Key, V any] struct {
	name    string
	storage domain.Storage
	keyOf   func(V) K
	log     *zap.Logger

	mu          sync.RWMutex
	items       map[K]V
	order       []K
	initialized bool
}

// New returns a store called name whose values are keyed by keyOf.
func New[K Key, V any](storage domain.Storage, log *zap.Logger, name string, keyOf func(V) K) *Store[K, V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store[K, V]{
		name:    name,
		storage: storage,
		keyOf:   keyOf,
		log:     log.Named("store." + name),
		items:   map[K]V{},
	}
}

// Name returns the store's name.
func (s *Store[K, V]) Name() string { return s.name }

// StorageKey is where the store is persisted.
func (s *Store[K, V]) StorageKey() string { return domain.StorageKey(s.name) }

// Init restores persisted values. Restore failures are logged and leave the
// store empty. Calling Init twice is a no-op.
func (s *Store[K, V]) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := s.restoreLocked(ctx); err != nil {
		s.log.Error("restore failed", zap.Error(err))
	}
	s.initialized = true
	s.log.Debug("initialized", zap.Int("count", len(s.items)))
	return nil
}

func (s *Store[K, V]) restoreLocked(ctx context.Context) error {
	var persisted []V
	found, err := s.storage.GetItem(ctx, s.StorageKey(), &persisted)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.StorageKey(), err)
	}
	if !found || len(persisted) == 0 {
		return nil
	}
	if len(s.items) > 0 {
		return domain.RestoreWillOverride(s.name)
	}
	for _, v := range persisted {
		k := s.keyOf(v)
		s.items[k] = v
		s.order = append(s.order, k)
	}
	return nil
}

// Set upserts value under key and persists.
func (s *Store[K, V]) Set(ctx context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return domain.NotInitialized(s.name)
	}
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = value
	s.log.Debug("set", zap.Any("key", key))
	return s.persistLocked(ctx)
}

// Get returns the value under key.
func (s *Store[K, V]) Get(key K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		var zero V
		return zero, domain.NotInitialized(s.name)
	}
	v, ok := s.items[key]
	if !ok {
		var zero V
		return zero, s.noMatch(key)
	}
	return v, nil
}

// Has reports whether key is present.
func (s *Store[K, V]) Has(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Update applies mutate to the value under key and persists the result.
func (s *Store[K, V]) Update(ctx context.Context, key K, mutate func(*V)) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero V
	if !s.initialized {
		return zero, domain.NotInitialized(s.name)
	}
	v, ok := s.items[key]
	if !ok {
		return zero, s.noMatch(key)
	}
	mutate(&v)
	s.items[key] = v
	s.log.Debug("updated", zap.Any("key", key))
	return v, s.persistLocked(ctx)
}

// Delete removes key and persists. Absent keys are ignored.
func (s *Store[K, V]) Delete(ctx context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return domain.NotInitialized(s.name)
	}
	if _, ok := s.items[key]; !ok {
		return nil
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Debug("deleted", zap.Any("key", key))
	return s.persistLocked(ctx)
}

// Keys returns the keys in insertion order.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]K(nil), s.order...)
}

// Values returns the values in insertion order.
func (s *Store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

// Len returns the number of values.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[K, V]) valuesLocked() []V {
	out := make([]V, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

func (s *Store[K, V]) persistLocked(ctx context.Context) error {
	if err := s.storage.SetItem(ctx, s.StorageKey(), s.valuesLocked()); err != nil {
		s.log.Error("persist failed", zap.Error(err))
		return fmt.Errorf("persist %s: %w", s.name, err)
	}
	return nil
}

func (s *Store[K, V]) noMatch(key K) error {
	switch k := any(key).(type) {
	case string:
		return domain.NoMatchingTopic(s.name, k)
	case int64:
		return domain.NoMatchingID(s.name, k)
	default:
		return domain.MissingOrInvalid(fmt.Sprintf("%s key %v", s.name, key))
	}
}
