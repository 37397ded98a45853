package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"signclient/internal/crypto"
	"signclient/internal/domain"
	"signclient/internal/engine"
	"signclient/internal/expirer"
	"signclient/internal/heartbeat"
	"signclient/internal/history"
	"signclient/internal/relay"
	"signclient/internal/store"
)

// Wire bundles the storage, collaborators and engine of one client.
type Wire struct {
	Storage   domain.Storage
	Crypto    *crypto.Provider
	Relayer   domain.Relayer
	Heartbeat *heartbeat.Heartbeat
	Pairings  *store.Store[string, domain.Pairing]
	Sessions  *store.Store[string, domain.Session]
	Proposals *store.Store[int64, domain.Proposal]
	History   *history.History
	Expirer   *expirer.Expirer
	Engine    *engine.Engine

	// ownsRelayer is set when the relayer was dialed here rather than
	// supplied through Config.
	ownsRelayer bool
}

// NewWire constructs the dependency graph from cfg. Nothing is restored or
// started until App.Init.
func NewWire(ctx context.Context, cfg Config, log *zap.Logger) (*Wire, error) {
	if log == nil {
		log = zap.NewNop()
	}
	storage, err := store.NewStorage(ctx, cfg.Storage, log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	w := &Wire{
		Storage:   storage,
		Crypto:    crypto.New(crypto.NewKeychain(storage), log),
		Relayer:   cfg.Relayer,
		Heartbeat: heartbeat.New(cfg.HeartbeatInterval),
		Pairings:  store.New(storage, log, "pairing", func(p domain.Pairing) string { return p.Topic }),
		Sessions:  store.New(storage, log, "session", func(s domain.Session) string { return s.Topic }),
		Proposals: store.New(storage, log, "proposal", func(p domain.Proposal) int64 { return p.ID }),
		History:   history.New(storage, log),
	}
	w.Expirer = expirer.New(storage, w.Heartbeat, expirer.WithLogger(log))

	if w.Relayer == nil {
		ws, err := relay.DialWebSocket(ctx, cfg.RelayURL, log)
		if err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("connect relay: %w", err)
		}
		w.Relayer, w.ownsRelayer = ws, true
	}

	w.Engine = engine.New(engine.Deps{
		Crypto:    w.Crypto,
		Relayer:   w.Relayer,
		Pairings:  w.Pairings,
		Sessions:  w.Sessions,
		Proposals: w.Proposals,
		History:   w.History,
		Expirer:   w.Expirer,
	}, cfg.Metadata, engine.WithLogger(log))
	return w, nil
}
