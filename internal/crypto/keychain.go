package crypto

import (
	"context"
	"fmt"
	"sync"

	"signclient/internal/domain"
)

// Keychain maps public keys to private keys and topics to symmetric keys.
// The whole map is persisted on every change.
type Keychain struct {
	storage domain.Storage

	mu          sync.RWMutex
	keys        map[string]string
	initialized bool
}

// NewKeychain returns a keychain persisted in storage.
func NewKeychain(storage domain.Storage) *Keychain {
	return &Keychain{storage: storage, keys: map[string]string{}}
}

// StorageKey is where the keychain is persisted.
func (k *Keychain) StorageKey() string { return domain.StorageKey("keychain") }

// Init restores persisted keys. Calling it twice is a no-op. A read failure
// is returned but still leaves the keychain initialized and empty.
func (k *Keychain) Init(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.initialized {
		return nil
	}
	k.initialized = true
	stored := map[string]string{}
	if _, err := k.storage.GetItem(ctx, k.StorageKey(), &stored); err != nil {
		return fmt.Errorf("restore keychain: %w", err)
	}
	for tag, key := range stored {
		k.keys[tag] = key
	}
	return nil
}

// Has reports whether tag holds a key.
func (k *Keychain) Has(tag string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[tag]
	return ok
}

// Get returns the key stored under tag.
func (k *Keychain) Get(tag string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.initialized {
		return "", domain.NotInitialized("keychain")
	}
	key, ok := k.keys[tag]
	if !ok {
		return "", domain.NoMatchingTopic("keychain", tag)
	}
	return key, nil
}

// Set stores key under tag.
func (k *Keychain) Set(ctx context.Context, tag, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.initialized {
		return domain.NotInitialized("keychain")
	}
	k.keys[tag] = key
	return k.persistLocked(ctx)
}

// Delete removes tag. Unknown tags are ignored.
func (k *Keychain) Delete(ctx context.Context, tag string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.initialized {
		return domain.NotInitialized("keychain")
	}
	if _, ok := k.keys[tag]; !ok {
		return nil
	}
	delete(k.keys, tag)
	return k.persistLocked(ctx)
}

func (k *Keychain) persistLocked(ctx context.Context) error {
	if err := k.storage.SetItem(ctx, k.StorageKey(), k.keys); err != nil {
		return fmt.Errorf("persist keychain: %w", err)
	}
	return nil
}
