package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/engine"
)

// App is the client facade. Every call forwards to the engine; failures
// are logged and returned unchanged.
type App struct {
	wire *Wire
	log  *zap.Logger

	stop      context.CancelFunc
	closeOnce sync.Once
}

// New builds an App from cfg. Call Init before using it.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := NewWire(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{wire: w, log: log.Named("client")}, nil
}

// Wire exposes the underlying components.
func (a *App) Wire() *Wire { return a.wire }

// Init restores persisted state in dependency order, starts the engine and
// then the heartbeat.
func (a *App) Init(ctx context.Context) error {
	w := a.wire
	steps := []struct {
		name string
		init func(context.Context) error
	}{
		{"keychain", w.Crypto.Init},
		{"pairings", w.Pairings.Init},
		{"sessions", w.Sessions.Init},
		{"proposals", w.Proposals.Init},
		{"history", w.History.Init},
		{"expirer", w.Expirer.Init},
		{"engine", w.Engine.Init},
	}
	for _, step := range steps {
		if err := step.init(ctx); err != nil {
			a.log.Error("init failed", zap.String("component", step.name), zap.Error(err))
			return err
		}
	}
	hbCtx, stop := context.WithCancel(context.Background())
	a.stop = stop
	w.Heartbeat.Start(hbCtx)
	a.log.Info("initialized")
	return nil
}

// Close stops the heartbeat and engine and releases the relay connection
// and storage.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.stop != nil {
			a.stop()
		}
		a.wire.Engine.Close()
		var errs []error
		if c, ok := a.wire.Relayer.(io.Closer); ok && a.wire.ownsRelayer {
			errs = append(errs, c.Close())
		}
		errs = append(errs, a.wire.Storage.Close())
		err = errors.Join(errs...)
	})
	return err
}

// On subscribes to a domain event.
func (a *App) On(name engine.EventName, fn func(engine.Event)) (off func()) {
	return a.wire.Engine.On(name, fn)
}

// Connect proposes a session.
func (a *App) Connect(ctx context.Context, p engine.ConnectParams) (engine.ConnectResult, error) {
	res, err := a.wire.Engine.Connect(ctx, p)
	return res, a.logged("connect", err)
}

// Pair joins the pairing in a URI.
func (a *App) Pair(ctx context.Context, p engine.PairParams) (domain.Pairing, error) {
	pairing, err := a.wire.Engine.Pair(ctx, p)
	return pairing, a.logged("pair", err)
}

// Approve settles a received proposal.
func (a *App) Approve(ctx context.Context, p engine.ApproveParams) (engine.ApproveResult, error) {
	res, err := a.wire.Engine.Approve(ctx, p)
	return res, a.logged("approve", err)
}

// Reject declines a received proposal.
func (a *App) Reject(ctx context.Context, p engine.RejectParams) error {
	return a.logged("reject", a.wire.Engine.Reject(ctx, p))
}

// Update replaces a session's namespaces.
func (a *App) Update(ctx context.Context, p engine.UpdateParams) (*engine.Pending[struct{}], error) {
	ack, err := a.wire.Engine.Update(ctx, p)
	return ack, a.logged("update", err)
}

// Extend refreshes a session's expiry.
func (a *App) Extend(ctx context.Context, p engine.ExtendParams) (*engine.Pending[struct{}], error) {
	ack, err := a.wire.Engine.Extend(ctx, p)
	return ack, a.logged("extend", err)
}

// Request calls the peer and waits for its result.
func (a *App) Request(ctx context.Context, p engine.RequestParams) (json.RawMessage, error) {
	res, err := a.wire.Engine.Request(ctx, p)
	return res, a.logged("request", err)
}

// Respond answers a received session request.
func (a *App) Respond(ctx context.Context, p engine.RespondParams) error {
	return a.logged("respond", a.wire.Engine.Respond(ctx, p))
}

// Ping round-trips a ping.
func (a *App) Ping(ctx context.Context, p engine.PingParams) error {
	return a.logged("ping", a.wire.Engine.Ping(ctx, p))
}

// Emit forwards an event to the peer.
func (a *App) Emit(ctx context.Context, p engine.EmitParams) error {
	return a.logged("emit", a.wire.Engine.Emit(ctx, p))
}

// Disconnect ends a session or pairing.
func (a *App) Disconnect(ctx context.Context, p engine.DisconnectParams) error {
	return a.logged("disconnect", a.wire.Engine.Disconnect(ctx, p))
}

// Find returns the sessions satisfying the given namespaces.
func (a *App) Find(p engine.FindParams) ([]domain.Session, error) {
	sessions, err := a.wire.Engine.Find(p)
	return sessions, a.logged("find", err)
}

// Sessions returns every stored session.
func (a *App) Sessions() []domain.Session { return a.wire.Engine.Sessions() }

// Pairings returns every stored pairing.
func (a *App) Pairings() []domain.Pairing { return a.wire.Engine.Pairings() }

// Proposals returns every pending proposal.
func (a *App) Proposals() []domain.Proposal { return a.wire.Engine.Proposals() }

func (a *App) logged(op string, err error) error {
	if err != nil {
		a.log.Error(op+" failed", zap.Error(err))
	}
	return err
}
