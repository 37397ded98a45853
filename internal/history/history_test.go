package history

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signclient/internal/domain"
	"signclient/internal/jsonrpc"
	"signclient/internal/store"
)

func newHistory(t *testing.T, storage domain.Storage) *History {
	t.Helper()
	h := New(storage, nil)
	require.NoError(t, h.Init(context.Background()))
	return h
}

func request(t *testing.T, id int64, method string) jsonrpc.Request {
	t.Helper()
	req, err := jsonrpc.FormatRequest(method, map[string]string{"k": "v"})
	require.NoError(t, err)
	req.ID = id
	return req
}

func TestSetIsIdempotent(t *testing.T) {
	h := newHistory(t, store.NewMemoryStorage())
	created := 0
	h.On(EventCreated, func(domain.HistoryRecord) { created++ })

	require.NoError(t, h.Set("t", request(t, 1, domain.MethodSessionPing), ""))
	require.NoError(t, h.Set("other", request(t, 1, domain.MethodSessionUpdate), ""))

	rec, err := h.Get("t", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodSessionPing, rec.Request.Method)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, h.Len())
}

func TestResolveOnce(t *testing.T) {
	h := newHistory(t, store.NewMemoryStorage())
	updated := 0
	h.On(EventUpdated, func(domain.HistoryRecord) { updated++ })

	require.NoError(t, h.Set("t", request(t, 1, domain.MethodSessionRequest), "eip155:1"))

	first, err := jsonrpc.FormatResult(1, "0xsig")
	require.NoError(t, err)
	require.NoError(t, h.Resolve(first))
	require.NoError(t, h.Resolve(jsonrpc.FormatError(1, domain.ReasonUserRejected)))
	require.NoError(t, h.Resolve(jsonrpc.FormatError(99, domain.ReasonUserRejected)))

	rec, err := h.Get("t", 1)
	require.NoError(t, err)
	require.NotNil(t, rec.Response)
	assert.Nil(t, rec.Response.Error)
	var sig string
	require.NoError(t, json.Unmarshal(rec.Response.Result, &sig))
	assert.Equal(t, "0xsig", sig)
	assert.Equal(t, "eip155:1", rec.ChainID)
	assert.Equal(t, 1, updated)
}

func TestGetChecksTopic(t *testing.T) {
	h := newHistory(t, store.NewMemoryStorage())
	require.NoError(t, h.Set("t", request(t, 1, domain.MethodSessionPing), ""))

	_, err := h.Get("other", 1)
	assert.True(t, errors.Is(err, domain.ErrMismatchedTopic))
	_, err = h.Get("t", 2)
	assert.True(t, errors.Is(err, domain.ErrNoMatchingID))

	assert.True(t, h.Exists("t", 1))
	assert.False(t, h.Exists("other", 1))
	assert.False(t, h.Exists("t", 2))
}

func TestDeleteByTopicOrID(t *testing.T) {
	h := newHistory(t, store.NewMemoryStorage())
	require.NoError(t, h.Set("a", request(t, 1, domain.MethodSessionPing), ""))
	require.NoError(t, h.Set("a", request(t, 2, domain.MethodSessionPing), ""))
	require.NoError(t, h.Set("b", request(t, 3, domain.MethodSessionPing), ""))

	require.NoError(t, h.Delete("a", 2))
	assert.True(t, h.Exists("a", 1))
	assert.False(t, h.Exists("a", 2))

	require.NoError(t, h.Delete("b", 1))
	assert.True(t, h.Exists("a", 1))

	require.NoError(t, h.Delete("a"))
	assert.False(t, h.Exists("a", 1))
	assert.True(t, h.Exists("b", 3))
}

func TestPendingRebuildsRequests(t *testing.T) {
	h := newHistory(t, store.NewMemoryStorage())
	require.NoError(t, h.Set("a", request(t, 1, domain.MethodSessionRequest), "eip155:1"))
	require.NoError(t, h.Set("a", request(t, 2, domain.MethodSessionPing), ""))
	res, err := jsonrpc.FormatResult(2, true)
	require.NoError(t, err)
	require.NoError(t, h.Resolve(res))

	pending := h.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].Topic)
	assert.Equal(t, int64(1), pending[0].Request.ID)
	assert.Equal(t, jsonrpc.Version, pending[0].Request.JSONRPC)
	assert.Equal(t, domain.MethodSessionRequest, pending[0].Request.Method)
	assert.JSONEq(t, `{"k":"v"}`, string(pending[0].Request.Params))
	assert.Equal(t, "eip155:1", pending[0].ChainID)
}

func TestPersistAndRestore(t *testing.T) {
	storage := store.NewMemoryStorage()
	h := newHistory(t, storage)
	syncs := 0
	h.On(EventSync, func(domain.HistoryRecord) { syncs++ })
	require.NoError(t, h.Set("a", request(t, 1, domain.MethodSessionPing), ""))
	assert.Equal(t, 1, syncs)

	restored := newHistory(t, storage)
	assert.True(t, restored.Exists("a", 1))
}

func TestRequiresInit(t *testing.T) {
	h := New(store.NewMemoryStorage(), nil)
	err := h.Set("a", request(t, 1, domain.MethodSessionPing), "")
	assert.True(t, errors.Is(err, domain.ErrNotInitialized))
}

// slowStorage snapshots a value on SetItem and writes it after a random
// delay, so concurrent writes can finish out of order.
type slowStorage struct {
	*store.MemoryStorage
}

func (s slowStorage) SetItem(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	time.Sleep(time.Duration(rand.IntN(300)) * time.Microsecond)
	return s.MemoryStorage.SetItem(ctx, key, json.RawMessage(b))
}

func TestConcurrentSetsPersistLatestTable(t *testing.T) {
	storage := slowStorage{store.NewMemoryStorage()}
	h := newHistory(t, storage)

	reqs := make([]jsonrpc.Request, 16)
	for i := range reqs {
		reqs[i] = request(t, int64(i+1), domain.MethodSessionPing)
	}
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Set("topic", req, ""))
		}()
	}
	wg.Wait()

	var persisted []domain.HistoryRecord
	found, err := storage.GetItem(context.Background(), h.StorageKey(), &persisted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, persisted, h.Len())

	restored := newHistory(t, storage)
	assert.Equal(t, 16, restored.Len())
}
