package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"

	"signclient/internal/domain"
)

// Compile-time assertion that FileStorage implements domain.Storage.
var _ domain.Storage = (*FileStorage)(nil)

var fileNameReplacer = strings.NewReplacer("/", "_", ":", "_", "@", "_", "\\", "_")

// FileStorage stores each key as a JSON file under dir.
// With a passphrase, files hold scrypt/ChaCha20-Poly1305 sealed values.
type FileStorage struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewFileStorage returns a FileStorage rooted at dir.
func NewFileStorage(dir, passphrase string) *FileStorage {
	return &FileStorage{dir: dir, passphrase: passphrase}
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, fileNameReplacer.Replace(key)+".json")
}

// GetItem decodes the value at key into out.
func (s *FileStorage) GetItem(_ context.Context, key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path(key))
	if err != nil || b == nil {
		return false, err
	}
	if s.passphrase != "" {
		if b, err = openWithPassphrase(s.passphrase, b); err != nil {
			return false, err
		}
	}
	return true, json.Unmarshal(b, out)
}

// SetItem writes value at key via temp file and rename.
func (s *FileStorage) SetItem(_ context.Context, key string, value any) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if s.passphrase != "" {
		if b, err = sealWithPassphrase(s.passphrase, b); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(s.path(key), b, 0o600)
}

// RemoveItem deletes the file for key.
func (s *FileStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path(key))
}

// Close is a no-op.
func (s *FileStorage) Close() error { return nil }
