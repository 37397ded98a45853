package expirer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/events"
)

// EventName names what happened to an expiry.
type EventName string

// Expirer events.
const (
	EventCreated EventName = "expirer_created"
	EventDeleted EventName = "expirer_deleted"
	EventExpired EventName = "expirer_expired"
	EventSync    EventName = "expirer_sync"
)

// Event describes a change to one expiry. Sync events carry no target.
type Event struct {
	Target     string
	Expiration domain.ExpiryRecord
}

// Option configures an Expirer.
type Option func(*Expirer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(x *Expirer) { x.now = now }
}

// WithLogger sets the parent logger.
func WithLogger(log *zap.Logger) Option {
	return func(x *Expirer) { x.log = log }
}

// Expirer is the TTL registry.
type Expirer struct {
	storage   domain.Storage
	heartbeat domain.Heartbeat
	log       *zap.Logger
	now       func() time.Time
	events    events.Emitter[EventName, Event]

	// persistMu orders snapshot and write so an older table never lands
	// after a newer one.
	persistMu sync.Mutex

	mu          sync.Mutex
	expirations map[string]domain.ExpiryRecord
	initialized bool
}

// New returns an Expirer persisted to storage and swept on heartbeat pulses.
func New(storage domain.Storage, heartbeat domain.Heartbeat, opts ...Option) *Expirer {
	x := &Expirer{
		storage:     storage,
		heartbeat:   heartbeat,
		log:         zap.NewNop(),
		now:         time.Now,
		expirations: map[string]domain.ExpiryRecord{},
	}
	for _, opt := range opts {
		opt(x)
	}
	x.log = x.log.Named("expirer")
	return x
}

// StorageKey is where the registry is persisted.
func (x *Expirer) StorageKey() string { return domain.StorageKey("expirer") }

// Init restores persisted expiries and starts listening for pulses.
// Restore failures are logged and leave the registry empty.
func (x *Expirer) Init(ctx context.Context) error {
	x.mu.Lock()
	if x.initialized {
		x.mu.Unlock()
		return nil
	}
	if err := x.restoreLocked(ctx); err != nil {
		x.log.Error("restore failed", zap.Error(err))
	}
	x.initialized = true
	x.mu.Unlock()

	x.heartbeat.OnPulse(x.CheckExpirations)
	for _, name := range []EventName{EventCreated, EventDeleted, EventExpired} {
		x.events.On(name, func(ev Event) {
			x.log.Info("emitting "+string(name), zap.String("target", ev.Target))
			x.persist(context.Background())
		})
	}
	x.log.Debug("initialized")
	return nil
}

func (x *Expirer) restoreLocked(ctx context.Context) error {
	var persisted []domain.ExpiryRecord
	found, err := x.storage.GetItem(ctx, x.StorageKey(), &persisted)
	if err != nil {
		return fmt.Errorf("read %s: %w", x.StorageKey(), err)
	}
	if !found || len(persisted) == 0 {
		return nil
	}
	if len(x.expirations) > 0 {
		return domain.RestoreWillOverride("expirer")
	}
	for _, rec := range persisted {
		x.expirations[rec.Target] = rec
	}
	return nil
}

// On registers fn for name and returns a func that removes it.
func (x *Expirer) On(name EventName, fn func(Event)) (off func()) {
	return x.events.On(name, fn)
}

// Has reports whether key has an expiry.
func (x *Expirer) Has(key Key) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.expirations[key.Target()]
	return ok
}

// Get returns the expiry for key.
func (x *Expirer) Get(key Key) (domain.ExpiryRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.initialized {
		return domain.ExpiryRecord{}, domain.NotInitialized("expirer")
	}
	rec, ok := x.expirations[key.Target()]
	if !ok {
		return domain.ExpiryRecord{}, &domain.Error{
			Kind:    domain.KindNoMatchingID,
			Message: "expirer target doesn't exist: " + key.Target(),
		}
	}
	return rec, nil
}

// Set upserts the expiry (unix seconds) for key. An already lapsed expiry
// is expired immediately.
func (x *Expirer) Set(key Key, expiry int64) error {
	target := key.Target()
	rec := domain.ExpiryRecord{Target: target, Expiry: expiry}

	x.mu.Lock()
	if !x.initialized {
		x.mu.Unlock()
		return domain.NotInitialized("expirer")
	}
	x.expirations[target] = rec
	x.mu.Unlock()

	x.events.Emit(EventCreated, Event{Target: target, Expiration: rec})
	x.checkExpiry(rec)
	return nil
}

// Del removes the expiry for key. Absent keys are ignored.
func (x *Expirer) Del(key Key) error {
	target := key.Target()

	x.mu.Lock()
	if !x.initialized {
		x.mu.Unlock()
		return domain.NotInitialized("expirer")
	}
	rec, ok := x.expirations[target]
	if ok {
		delete(x.expirations, target)
	}
	x.mu.Unlock()

	if ok {
		x.events.Emit(EventDeleted, Event{Target: target, Expiration: rec})
	}
	return nil
}

// Keys returns the topic or id of every tracked expiry.
func (x *Expirer) Keys() []Key {
	x.mu.Lock()
	defer x.mu.Unlock()
	keys := make([]Key, 0, len(x.expirations))
	for target := range x.expirations {
		key, err := ParseTarget(target)
		if err != nil {
			x.log.Warn("skipping unparsable target", zap.String("target", target))
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Values returns a snapshot of every expiry.
func (x *Expirer) Values() []domain.ExpiryRecord {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.valuesLocked()
}

// Len returns the number of tracked expiries.
func (x *Expirer) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.expirations)
}

// CheckExpirations expires every lapsed entry. It runs on each pulse.
func (x *Expirer) CheckExpirations() {
	for _, rec := range x.Values() {
		x.checkExpiry(rec)
	}
}

func (x *Expirer) checkExpiry(rec domain.ExpiryRecord) {
	if !domain.IsExpired(x.now(), rec.Expiry) {
		return
	}
	x.mu.Lock()
	current, ok := x.expirations[rec.Target]
	// A concurrent Set may have moved the deadline or a Del removed it.
	if !ok || current.Expiry != rec.Expiry {
		x.mu.Unlock()
		return
	}
	delete(x.expirations, rec.Target)
	x.mu.Unlock()

	x.events.Emit(EventExpired, Event{Target: rec.Target, Expiration: rec})
}

func (x *Expirer) valuesLocked() []domain.ExpiryRecord {
	out := make([]domain.ExpiryRecord, 0, len(x.expirations))
	for _, rec := range x.expirations {
		out = append(out, rec)
	}
	return out
}

func (x *Expirer) persist(ctx context.Context) {
	x.persistMu.Lock()
	err := x.storage.SetItem(ctx, x.StorageKey(), x.Values())
	x.persistMu.Unlock()
	if err != nil {
		x.log.Error("persist failed", zap.Error(err))
		return
	}
	x.events.Emit(EventSync, Event{})
}
