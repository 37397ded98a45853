package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/events"
	"signclient/internal/expirer"
	"signclient/internal/history"
	"signclient/internal/jsonrpc"
	"signclient/internal/store"
)

// Deps are the collaborators an Engine drives. Every field is required.
type Deps struct {
	Crypto    domain.Crypto
	Relayer   domain.Relayer
	Pairings  *store.Store[string, domain.Pairing]
	Sessions  *store.Store[string, domain.Session]
	Proposals *store.Store[int64, domain.Proposal]
	History   *history.History
	Expirer   *expirer.Expirer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the parent logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type (
	requestHandler  func(ctx context.Context, topic string, req jsonrpc.Request) error
	responseHandler func(ctx context.Context, topic string, rec domain.HistoryRecord, res jsonrpc.Response)
)

// Engine is the pairing and session state machine.
type Engine struct {
	crypto    domain.Crypto
	relayer   domain.Relayer
	pairings  *store.Store[string, domain.Pairing]
	sessions  *store.Store[string, domain.Session]
	proposals *store.Store[int64, domain.Proposal]
	history   *history.History
	expirer   *expirer.Expirer

	metadata domain.Metadata
	log      *zap.Logger
	now      func() time.Time

	events    events.Emitter[EventName, Event]
	waiters   *waiters
	requests  map[string]requestHandler
	responses map[string]responseHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	settleTopics map[string]int64 // session topic -> proposal id, proposer side
	offExpired   func()
	initialized  atomic.Bool
}

// New returns an Engine announcing metadata to peers. Call Init before use.
func New(deps Deps, metadata domain.Metadata, opts ...Option) *Engine {
	e := &Engine{
		crypto:       deps.Crypto,
		relayer:      deps.Relayer,
		pairings:     deps.Pairings,
		sessions:     deps.Sessions,
		proposals:    deps.Proposals,
		history:      deps.History,
		expirer:      deps.Expirer,
		metadata:     metadata,
		log:          zap.NewNop(),
		now:          time.Now,
		waiters:      newWaiters(),
		settleTopics: map[string]int64{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("engine")
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.requests = map[string]requestHandler{
		domain.MethodSessionPropose: e.onSessionPropose,
		domain.MethodSessionSettle:  e.onSessionSettle,
		domain.MethodSessionUpdate:  e.onSessionUpdate,
		domain.MethodSessionExtend:  e.onSessionExtend,
		domain.MethodSessionPing:    e.onSessionPing,
		domain.MethodPairingPing:    e.onPairingPing,
		domain.MethodSessionDelete:  e.onSessionDelete,
		domain.MethodPairingDelete:  e.onPairingDelete,
		domain.MethodSessionRequest: e.onSessionRequest,
		domain.MethodSessionEvent:   e.onSessionEvent,
	}
	e.responses = map[string]responseHandler{
		domain.MethodSessionPropose: e.onSessionProposeResponse,
		domain.MethodSessionSettle:  e.onSessionSettleResponse,
	}
	return e
}

// Init drops entities that lapsed while the process was down, resubscribes
// to the surviving topics and starts handling relay messages and expiries.
// The stores, history and expirer must already be initialized.
func (e *Engine) Init(ctx context.Context) error {
	if e.initialized.Load() {
		return nil
	}
	if err := e.cleanup(ctx); err != nil {
		return err
	}
	e.relayer.OnMessage(e.onMessage)
	e.offExpired = e.expirer.On(expirer.EventExpired, e.onExpired)
	e.initialized.Store(true)
	if err := e.resubscribe(ctx); err != nil {
		return err
	}
	e.log.Info("initialized",
		zap.Int("pairings", e.pairings.Len()),
		zap.Int("sessions", e.sessions.Len()),
		zap.Int("proposals", e.proposals.Len()))
	return nil
}

// Close stops reacting to expiries and cancels in-flight handler work.
// Pending awaitables are left unresolved.
func (e *Engine) Close() {
	e.cancel()
	if e.offExpired != nil {
		e.offExpired()
	}
}

// On registers fn for the domain event name and returns a func that removes it.
// Handlers run on the relay delivery goroutine and must not block on the
// Engine's awaitables.
func (e *Engine) On(name EventName, fn func(Event)) (off func()) {
	return e.events.On(name, fn)
}

// Once is On for a single delivery.
func (e *Engine) Once(name EventName, fn func(Event)) (off func()) {
	return e.events.Once(name, fn)
}

// Pairings returns every stored pairing.
func (e *Engine) Pairings() []domain.Pairing { return e.pairings.Values() }

// Sessions returns every stored session.
func (e *Engine) Sessions() []domain.Session { return e.sessions.Values() }

// Proposals returns every pending proposal.
func (e *Engine) Proposals() []domain.Proposal { return e.proposals.Values() }

// PendingRequests returns the outbound and inbound requests still awaiting
// a response.
func (e *Engine) PendingRequests() []history.PendingRequest { return e.history.Pending() }

func (e *Engine) emit(name EventName, ev Event) {
	ev.Name = name
	e.log.Debug("emit", zap.String("event", string(name)), zap.String("topic", ev.Topic), zap.Int64("id", ev.ID))
	e.events.Emit(name, ev)
}

func (e *Engine) checkInitialized() error {
	if !e.initialized.Load() {
		return domain.NotInitialized("engine")
	}
	return nil
}

func (e *Engine) setSettleTopic(topic string, proposalID int64) {
	e.mu.Lock()
	e.settleTopics[topic] = proposalID
	e.mu.Unlock()
}

func (e *Engine) takeSettleTopic(topic string) (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.settleTopics[topic]
	delete(e.settleTopics, topic)
	return id, ok
}
