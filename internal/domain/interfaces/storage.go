package interfaces

import "context"

// Storage is the key-value backend behind every persistent component.
// Values round-trip through JSON.
type Storage interface {
	// GetItem decodes the value at key into out. ok is false when key is absent.
	GetItem(ctx context.Context, key string, out any) (ok bool, err error)
	SetItem(ctx context.Context, key string, value any) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}
