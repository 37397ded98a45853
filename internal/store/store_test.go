package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signclient/internal/domain"
	"signclient/internal/store"
)

func newPairings(storage domain.Storage) *store.Store[string, domain.Pairing] {
	return store.New(storage, nil, "pairing", func(p domain.Pairing) string { return p.Topic })
}

func TestStoreRequiresInit(t *testing.T) {
	s := newPairings(store.NewMemoryStorage())
	err := s.Set(context.Background(), "t", domain.Pairing{Topic: "t"})
	assert.True(t, errors.Is(err, domain.ErrNotInitialized))
	_, err = s.Get("t")
	assert.True(t, errors.Is(err, domain.ErrNotInitialized))
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := newPairings(store.NewMemoryStorage())
	require.NoError(t, s.Init(ctx))

	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, domain.ErrNoMatchingTopic))

	require.NoError(t, s.Set(ctx, "t1", domain.Pairing{Topic: "t1", Expiry: 10}))
	require.NoError(t, s.Set(ctx, "t2", domain.Pairing{Topic: "t2", Expiry: 20}))
	assert.Equal(t, []string{"t1", "t2"}, s.Keys())

	updated, err := s.Update(ctx, "t1", func(p *domain.Pairing) { p.Active = true })
	require.NoError(t, err)
	assert.True(t, updated.Active)
	got, err := s.Get("t1")
	require.NoError(t, err)
	assert.True(t, got.Active)

	_, err = s.Update(ctx, "missing", func(*domain.Pairing) {})
	assert.True(t, errors.Is(err, domain.ErrNoMatchingTopic))

	require.NoError(t, s.Delete(ctx, "t1"))
	require.NoError(t, s.Delete(ctx, "t1"))
	assert.False(t, s.Has("t1"))
	assert.Equal(t, 1, s.Len())
}

func TestStoreIDKeysReportNoMatchingID(t *testing.T) {
	s := store.New(store.NewMemoryStorage(), nil, "proposal", func(p domain.Proposal) int64 { return p.ID })
	require.NoError(t, s.Init(context.Background()))
	_, err := s.Get(42)
	assert.True(t, errors.Is(err, domain.ErrNoMatchingID))
}

func TestStoreRestoresFromStorage(t *testing.T) {
	ctx := context.Background()
	storage := store.NewFileStorage(t.TempDir(), "")

	first := newPairings(storage)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.Set(ctx, "t1", domain.Pairing{Topic: "t1", Relay: domain.RelayProtocolOptions{Protocol: "irn"}}))

	second := newPairings(storage)
	require.NoError(t, second.Init(ctx))
	got, err := second.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "irn", got.Relay.Protocol)
}

func TestStoreRestoreFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStorage()
	require.NoError(t, storage.SetItem(ctx, domain.StorageKey("pairing"), "not a list"))

	s := newPairings(storage)
	require.NoError(t, s.Init(ctx))
	assert.Equal(t, 0, s.Len())
}
