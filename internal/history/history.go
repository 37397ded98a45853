package history

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/events"
	"signclient/internal/jsonrpc"
)

// EventName names what happened to a record.
type EventName string

// History events.
const (
	EventCreated EventName = "history_created"
	EventUpdated EventName = "history_updated"
	EventDeleted EventName = "history_deleted"
	EventSync    EventName = "history_sync"
)

// PendingRequest is an unresolved request rebuilt for resumption.
type PendingRequest struct {
	Topic   string
	Request jsonrpc.Request
	ChainID string
}

// History is the JSON-RPC request/response correlation table.
type History struct {
	storage domain.Storage
	log     *zap.Logger
	events  events.Emitter[EventName, domain.HistoryRecord]

	// persistMu orders snapshot and write so an older table never lands
	// after a newer one.
	persistMu sync.Mutex

	mu          sync.RWMutex
	records     map[int64]domain.HistoryRecord
	order       []int64
	initialized bool
}

// New returns a History persisted to storage. A nil logger disables logging.
func New(storage domain.Storage, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{
		storage: storage,
		log:     log.Named("history"),
		records: map[int64]domain.HistoryRecord{},
	}
}

// StorageKey is where the table is persisted.
func (h *History) StorageKey() string { return domain.StorageKey("history") }

// Init restores persisted records. Restore failures are logged and leave the
// table empty.
func (h *History) Init(ctx context.Context) error {
	h.mu.Lock()
	if h.initialized {
		h.mu.Unlock()
		return nil
	}
	if err := h.restoreLocked(ctx); err != nil {
		h.log.Error("restore failed", zap.Error(err))
	}
	h.initialized = true
	h.mu.Unlock()

	for _, name := range []EventName{EventCreated, EventUpdated, EventDeleted} {
		h.events.On(name, func(rec domain.HistoryRecord) {
			h.log.Info("emitting "+string(name), zap.Int64("id", rec.ID), zap.String("topic", rec.Topic))
			h.persist(context.Background())
		})
	}
	h.log.Debug("initialized")
	return nil
}

func (h *History) restoreLocked(ctx context.Context) error {
	var persisted []domain.HistoryRecord
	found, err := h.storage.GetItem(ctx, h.StorageKey(), &persisted)
	if err != nil {
		return fmt.Errorf("read %s: %w", h.StorageKey(), err)
	}
	if !found || len(persisted) == 0 {
		return nil
	}
	if len(h.records) > 0 {
		return domain.RestoreWillOverride("history")
	}
	for _, rec := range persisted {
		h.records[rec.ID] = rec
		h.order = append(h.order, rec.ID)
	}
	return nil
}

// On registers fn for name and returns a func that removes it.
func (h *History) On(name EventName, fn func(domain.HistoryRecord)) (off func()) {
	return h.events.On(name, fn)
}

// Set records request under topic. Ids already recorded are ignored.
func (h *History) Set(topic string, req jsonrpc.Request, chainID string) error {
	h.mu.Lock()
	if !h.initialized {
		h.mu.Unlock()
		return domain.NotInitialized("history")
	}
	if _, ok := h.records[req.ID]; ok {
		h.mu.Unlock()
		return nil
	}
	rec := domain.HistoryRecord{
		ID:      req.ID,
		Topic:   topic,
		Request: domain.RequestArguments{Method: req.Method, Params: req.Params},
		ChainID: chainID,
	}
	h.records[rec.ID] = rec
	h.order = append(h.order, rec.ID)
	h.mu.Unlock()

	h.log.Debug("set", zap.Int64("id", rec.ID), zap.String("method", rec.Request.Method))
	h.events.Emit(EventCreated, rec)
	return nil
}

// Resolve attaches res to its request. Unknown or already resolved ids are ignored.
func (h *History) Resolve(res jsonrpc.Response) error {
	h.mu.Lock()
	if !h.initialized {
		h.mu.Unlock()
		return domain.NotInitialized("history")
	}
	rec, ok := h.records[res.ID]
	if !ok || rec.Response != nil {
		h.mu.Unlock()
		return nil
	}
	if res.IsError() {
		rec.Response = &domain.HistoryResponse{Error: res.Error}
	} else {
		rec.Response = &domain.HistoryResponse{Result: res.Result}
	}
	h.records[rec.ID] = rec
	h.mu.Unlock()

	h.log.Debug("resolved", zap.Int64("id", rec.ID))
	h.events.Emit(EventUpdated, rec)
	return nil
}

// Get returns the record for id, which must belong to topic.
func (h *History) Get(topic string, id int64) (domain.HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.initialized {
		return domain.HistoryRecord{}, domain.NotInitialized("history")
	}
	rec, ok := h.records[id]
	if !ok {
		return domain.HistoryRecord{}, domain.NoMatchingID("history", id)
	}
	if rec.Topic != topic {
		return domain.HistoryRecord{}, domain.MismatchedTopic("history", id)
	}
	return rec, nil
}

// Exists reports whether id is recorded under topic.
func (h *History) Exists(topic string, id int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.records[id]
	return ok && rec.Topic == topic
}

// Delete removes every record of topic, or only the given ids within it.
func (h *History) Delete(topic string, ids ...int64) error {
	h.mu.Lock()
	if !h.initialized {
		h.mu.Unlock()
		return domain.NotInitialized("history")
	}
	var removed []domain.HistoryRecord
	kept := h.order[:0]
	for _, id := range h.order {
		rec := h.records[id]
		if rec.Topic == topic && (len(ids) == 0 || slices.Contains(ids, id)) {
			delete(h.records, id)
			removed = append(removed, rec)
			continue
		}
		kept = append(kept, id)
	}
	h.order = kept
	h.mu.Unlock()

	for _, rec := range removed {
		h.events.Emit(EventDeleted, rec)
	}
	return nil
}

// Values returns every record in insertion order.
func (h *History) Values() []domain.HistoryRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.valuesLocked()
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Pending returns the unresolved requests as full JSON-RPC requests.
func (h *History) Pending() []PendingRequest {
	var out []PendingRequest
	for _, rec := range h.Values() {
		if rec.Response != nil {
			continue
		}
		out = append(out, PendingRequest{
			Topic: rec.Topic,
			Request: jsonrpc.Request{
				ID:      rec.ID,
				JSONRPC: jsonrpc.Version,
				Method:  rec.Request.Method,
				Params:  rec.Request.Params,
			},
			ChainID: rec.ChainID,
		})
	}
	return out
}

func (h *History) valuesLocked() []domain.HistoryRecord {
	out := make([]domain.HistoryRecord, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.records[id])
	}
	return out
}

func (h *History) persist(ctx context.Context) {
	h.persistMu.Lock()
	err := h.storage.SetItem(ctx, h.StorageKey(), h.Values())
	h.persistMu.Unlock()
	if err != nil {
		h.log.Error("persist failed", zap.Error(err))
		return
	}
	h.events.Emit(EventSync, domain.HistoryRecord{})
}
