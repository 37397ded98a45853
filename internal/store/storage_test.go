package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signclient/internal/domain"
	"signclient/internal/store"
)

type sample struct {
	Topic  string `json:"topic"`
	Expiry int64  `json:"expiry"`
}

func exerciseStorage(t *testing.T, s domain.Storage) {
	t.Helper()
	ctx := context.Background()

	var got sample
	ok, err := s.GetItem(ctx, "wc@2:client:0.3//missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	in := []sample{{Topic: "a", Expiry: 1}, {Topic: "b", Expiry: 2}}
	require.NoError(t, s.SetItem(ctx, "wc@2:client:0.3//samples", in))

	var out []sample
	ok, err = s.GetItem(ctx, "wc@2:client:0.3//samples", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, s.RemoveItem(ctx, "wc@2:client:0.3//samples"))
	ok, err = s.GetItem(ctx, "wc@2:client:0.3//samples", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing twice is fine.
	require.NoError(t, s.RemoveItem(ctx, "wc@2:client:0.3//samples"))
	require.NoError(t, s.Close())
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, store.NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	exerciseStorage(t, store.NewFileStorage(t.TempDir(), ""))
}

func TestFileStorageSealed(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := store.NewFileStorage(dir, "correct horse")
	require.NoError(t, s.SetItem(ctx, "wc@2:client:0.3//keychain", map[string]string{"k": "secret-value"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-value")

	out := map[string]string{}
	ok, err := s.GetItem(ctx, "wc@2:client:0.3//keychain", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret-value", out["k"])

	wrong := store.NewFileStorage(dir, "wrong")
	_, err = wrong.GetItem(ctx, "wc@2:client:0.3//keychain", &out)
	require.Error(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := store.OpenSQLiteStorage(filepath.Join(t.TempDir(), "state", "signclient.db"))
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := store.NewRedisStorage(context.Background(), store.RedisConfig{Addr: addr})
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestNewStorageSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := store.NewStorage(ctx, store.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStorage{}, s)

	s, err = store.NewStorage(ctx, store.Config{Backend: store.BackendFile, Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.FileStorage{}, s)

	s, err = store.NewStorage(ctx, store.Config{Backend: store.BackendSQLite, Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStorage{}, s)
	require.NoError(t, s.Close())

	_, err = store.NewStorage(ctx, store.Config{Backend: "tape"}, nil)
	require.Error(t, err)
}
