package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signclient/internal/domain"
	"signclient/internal/expirer"
)

// deleteSession removes every trace of the session on topic. Each step
// tolerates an already absent entity, so repeated calls succeed.
func (e *Engine) deleteSession(ctx context.Context, topic string) error {
	session, err := e.sessions.Get(topic)
	selfKey := session.Self.PublicKey
	if err != nil && !errors.Is(err, domain.ErrNoMatchingTopic) {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.relayer.Unsubscribe(gctx, topic) })
	g.Go(func() error { return e.sessions.Delete(gctx, topic) })
	g.Go(func() error { return e.crypto.DeleteSymKey(gctx, topic) })
	if selfKey != "" {
		g.Go(func() error { return e.crypto.DeleteKeyPair(gctx, selfKey) })
	}
	g.Go(func() error { return e.expirer.Del(expirer.Topic(topic)) })
	g.Go(func() error { return e.history.Delete(topic) })
	if err := g.Wait(); err != nil {
		return err
	}
	e.takeSettleTopic(topic)
	e.log.Debug("deleted session", zap.String("topic", topic))
	return nil
}

// deletePairing is deleteSession for pairings.
func (e *Engine) deletePairing(ctx context.Context, topic string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.relayer.Unsubscribe(gctx, topic) })
	g.Go(func() error { return e.pairings.Delete(gctx, topic) })
	g.Go(func() error { return e.crypto.DeleteSymKey(gctx, topic) })
	g.Go(func() error { return e.expirer.Del(expirer.Topic(topic)) })
	g.Go(func() error { return e.history.Delete(topic) })
	if err := g.Wait(); err != nil {
		return err
	}
	e.log.Debug("deleted pairing", zap.String("topic", topic))
	return nil
}

func (e *Engine) deleteProposal(ctx context.Context, id int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.proposals.Delete(gctx, id) })
	g.Go(func() error { return e.expirer.Del(expirer.ID(id)) })
	if err := g.Wait(); err != nil {
		return err
	}
	e.log.Debug("deleted proposal", zap.Int64("id", id))
	return nil
}

// cleanup drops everything that lapsed while the process was not running.
func (e *Engine) cleanup(ctx context.Context) error {
	now := e.now()
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range e.sessions.Values() {
		if domain.IsExpired(now, s.Expiry) {
			g.Go(func() error { return e.deleteSession(gctx, s.Topic) })
		}
	}
	for _, p := range e.pairings.Values() {
		if domain.IsExpired(now, p.Expiry) {
			g.Go(func() error { return e.deletePairing(gctx, p.Topic) })
		}
	}
	for _, p := range e.proposals.Values() {
		if domain.IsExpired(now, p.Expiry) {
			g.Go(func() error { return e.deleteProposal(gctx, p.ID) })
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.log.Debug("cleanup done")
	return nil
}

// resubscribe rejoins the topics of every pairing and session that survived
// a restart.
func (e *Engine) resubscribe(ctx context.Context) error {
	for _, p := range e.pairings.Values() {
		if _, err := e.relayer.Subscribe(ctx, p.Topic, domain.SubscribeOptions{Relay: p.Relay}); err != nil {
			return err
		}
	}
	for _, s := range e.sessions.Values() {
		if _, err := e.relayer.Subscribe(ctx, s.Topic, domain.SubscribeOptions{Relay: s.Relay}); err != nil {
			return err
		}
	}
	return nil
}

// onExpired tears down whatever the expirer reports as lapsed.
func (e *Engine) onExpired(ev expirer.Event) {
	key, err := expirer.ParseTarget(ev.Target)
	if err != nil {
		e.log.Warn("unknown expiry target", zap.String("target", ev.Target), zap.Error(err))
		return
	}
	ctx := e.ctx
	switch k := key.(type) {
	case expirer.Topic:
		topic := string(k)
		switch {
		case e.sessions.Has(topic):
			e.logTeardown("session", e.deleteSession(ctx, topic))
			e.emit(EventSessionExpire, Event{Topic: topic})
		case e.pairings.Has(topic):
			e.logTeardown("pairing", e.deletePairing(ctx, topic))
			e.emit(EventPairingExpire, Event{Topic: topic})
		}
	case expirer.ID:
		id := int64(k)
		if !e.proposals.Has(id) {
			return
		}
		e.logTeardown("proposal", e.deleteProposal(ctx, id))
		e.waiters.deliver(sessionConnect, id, outcome{err: domain.Expired("proposal id: " + ev.Target)})
		e.emit(EventProposalExpire, Event{ID: id})
	}
}
