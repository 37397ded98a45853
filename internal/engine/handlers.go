package engine

import (
	"context"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/expirer"
	"signclient/internal/jsonrpc"
)

func (e *Engine) onSessionPropose(ctx context.Context, topic string, req jsonrpc.Request) error {
	var params domain.SessionProposeParams
	if err := jsonrpc.DecodeParams(req, &params); err != nil {
		return domain.MissingOrInvalid(err.Error())
	}
	if err := isValidProposeParams(params); err != nil {
		return err
	}
	if !e.pairings.Has(topic) {
		return domain.NoMatchingTopic("pairing", topic)
	}
	proposal := domain.Proposal{
		ID:                 req.ID,
		Expiry:             domain.CalcExpiry(e.now(), domain.ProposalTTL),
		PairingTopic:       topic,
		Relays:             params.Relays,
		Proposer:           params.Proposer,
		RequiredNamespaces: params.RequiredNamespaces,
	}
	if err := e.setProposal(ctx, proposal); err != nil {
		return err
	}
	e.emit(EventSessionProposal, Event{ID: req.ID, Topic: topic, Params: proposal})
	return nil
}

// onSessionSettle runs on the proposer once the responder has approved.
func (e *Engine) onSessionSettle(ctx context.Context, topic string, req jsonrpc.Request) error {
	var params domain.SessionSettleParams
	if err := jsonrpc.DecodeParams(req, &params); err != nil {
		return domain.MissingOrInvalid(err.Error())
	}
	if err := isValidSettleParams(params); err != nil {
		return err
	}
	proposalID, ok := e.takeSettleTopic(topic)
	if !ok {
		return domain.NoMatchingTopic("session settle", topic)
	}
	proposal, err := e.proposals.Get(proposalID)
	if err != nil {
		return err
	}
	session := domain.Session{
		Topic:              topic,
		Expiry:             params.Expiry,
		Relay:              params.Relay,
		Acknowledged:       true,
		Controller:         params.Controller.PublicKey,
		Namespaces:         params.Namespaces,
		RequiredNamespaces: params.RequiredNamespaces,
		Self:               domain.Participant{PublicKey: proposal.Proposer.PublicKey, Metadata: e.metadata},
		Peer:               params.Controller,
	}
	if err := e.sessions.Set(ctx, topic, session); err != nil {
		return err
	}
	if err := e.expirer.Set(expirer.Topic(topic), session.Expiry); err != nil {
		return err
	}
	if proposal.PairingTopic != "" {
		e.setPeerMetadata(ctx, proposal.PairingTopic, params.Controller.Metadata)
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.logTeardown("proposal", e.deleteProposal(ctx, proposalID))
	e.log.Info("session settled", zap.String("topic", topic), zap.Int64("proposal", proposalID))
	e.waiters.deliver(sessionConnect, proposalID, outcome{session: session})
	return nil
}

func (e *Engine) onSessionUpdate(ctx context.Context, topic string, req jsonrpc.Request) error {
	var params domain.SessionUpdateParams
	if err := jsonrpc.DecodeParams(req, &params); err != nil {
		return domain.MissingOrInvalid(err.Error())
	}
	session, err := e.isValidSessionTopic(ctx, topic)
	if err != nil {
		return err
	}
	if err := isPeerController(session); err != nil {
		return err
	}
	if !domain.IsValidNamespaces(params.Namespaces) {
		return domain.MissingOrInvalid("update namespaces")
	}
	if _, err := e.sessions.Update(ctx, topic, func(s *domain.Session) { s.Namespaces = params.Namespaces }); err != nil {
		return err
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.emit(EventSessionUpdate, Event{ID: req.ID, Topic: topic, Params: params.Namespaces})
	return nil
}

func (e *Engine) onSessionExtend(ctx context.Context, topic string, req jsonrpc.Request) error {
	session, err := e.isValidSessionTopic(ctx, topic)
	if err != nil {
		return err
	}
	if err := isPeerController(session); err != nil {
		return err
	}
	if err := e.setSessionExpiry(ctx, topic, domain.CalcExpiry(e.now(), domain.SessionTTL)); err != nil {
		return err
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.emit(EventSessionExtend, Event{ID: req.ID, Topic: topic})
	return nil
}

func (e *Engine) onSessionPing(ctx context.Context, topic string, req jsonrpc.Request) error {
	if _, err := e.isValidSessionTopic(ctx, topic); err != nil {
		return err
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.emit(EventSessionPing, Event{ID: req.ID, Topic: topic})
	return nil
}

func (e *Engine) onPairingPing(ctx context.Context, topic string, req jsonrpc.Request) error {
	if _, err := e.isValidPairingTopic(ctx, topic); err != nil {
		return err
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.emit(EventPairingPing, Event{ID: req.ID, Topic: topic})
	return nil
}

// The reply goes out before teardown removes the topic key.
func (e *Engine) onSessionDelete(ctx context.Context, topic string, req jsonrpc.Request) error {
	reason, err := decodeReason(req)
	if err != nil {
		return err
	}
	if !e.sessions.Has(topic) {
		return domain.NoMatchingTopic("session", topic)
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.logTeardown("session", e.deleteSession(ctx, topic))
	e.log.Info("session deleted by peer", zap.String("topic", topic), zap.Int("code", reason.Code))
	e.emit(EventSessionDelete, Event{ID: req.ID, Topic: topic, Params: reason})
	return nil
}

func (e *Engine) onPairingDelete(ctx context.Context, topic string, req jsonrpc.Request) error {
	reason, err := decodeReason(req)
	if err != nil {
		return err
	}
	if !e.pairings.Has(topic) {
		return domain.NoMatchingTopic("pairing", topic)
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.logTeardown("pairing", e.deletePairing(ctx, topic))
	e.log.Info("pairing deleted by peer", zap.String("topic", topic), zap.Int("code", reason.Code))
	e.emit(EventPairingDelete, Event{ID: req.ID, Topic: topic, Params: reason})
	return nil
}

// onSessionRequest surfaces the call; the application answers with Respond.
func (e *Engine) onSessionRequest(ctx context.Context, topic string, req jsonrpc.Request) error {
	var params domain.SessionRequestParams
	if err := jsonrpc.DecodeParams(req, &params); err != nil {
		return domain.MissingOrInvalid(err.Error())
	}
	session, err := e.isValidSessionTopic(ctx, topic)
	if err != nil {
		return err
	}
	if err := isValidSessionCall(session.Namespaces, params.ChainID, params.Request.Method); err != nil {
		return err
	}
	e.emit(EventSessionRequest, Event{ID: req.ID, Topic: topic, Params: SessionRequest{
		Request: params.Request,
		ChainID: params.ChainID,
	}})
	return nil
}

func (e *Engine) onSessionEvent(ctx context.Context, topic string, req jsonrpc.Request) error {
	var params domain.SessionEventParams
	if err := jsonrpc.DecodeParams(req, &params); err != nil {
		return domain.MissingOrInvalid(err.Error())
	}
	session, err := e.isValidSessionTopic(ctx, topic)
	if err != nil {
		return err
	}
	if err := isValidSessionEvent(session.Namespaces, params.ChainID, params.Event.Name); err != nil {
		return err
	}
	if err := e.sendResult(ctx, topic, req.ID, true); err != nil {
		return err
	}
	e.emit(EventSessionEvent, Event{ID: req.ID, Topic: topic, Params: SessionEvent{
		Event:   params.Event,
		ChainID: params.ChainID,
	}})
	return nil
}

// onSessionProposeResponse runs on the proposer when the responder approves
// or rejects over the pairing topic.
func (e *Engine) onSessionProposeResponse(ctx context.Context, topic string, _ domain.HistoryRecord, res jsonrpc.Response) {
	log := e.log.With(zap.Int64("proposal", res.ID), zap.String("pairing", topic))
	proposal, err := e.proposals.Get(res.ID)
	if err != nil {
		log.Warn("response for unknown proposal", zap.Error(err))
		return
	}
	fail := func(err error) {
		e.logTeardown("proposal", e.deleteProposal(ctx, res.ID))
		e.waiters.deliver(sessionConnect, res.ID, outcome{err: err})
	}
	if res.IsError() {
		log.Info("proposal rejected", zap.Int("code", res.Error.Code), zap.String("message", res.Error.Message))
		fail(*res.Error)
		return
	}

	var result domain.SessionProposeResult
	if err := jsonrpc.DecodeResult(res, &result); err != nil || result.ResponderPublicKey == "" {
		fail(domain.MissingOrInvalid("session propose result"))
		return
	}
	sessionTopic, err := e.crypto.GenerateSharedKey(ctx, proposal.Proposer.PublicKey, result.ResponderPublicKey)
	if err != nil {
		fail(err)
		return
	}
	e.setSettleTopic(sessionTopic, proposal.ID)
	if _, err := e.relayer.Subscribe(ctx, sessionTopic, domain.SubscribeOptions{Relay: result.Relay}); err != nil {
		fail(err)
		return
	}
	if err := e.activatePairing(ctx, topic); err != nil {
		log.Warn("pairing not activated", zap.Error(err))
	}
	log.Info("proposal approved", zap.String("session", sessionTopic))
}

// onSessionSettleResponse runs on the responder when the proposer
// acknowledges or refuses the settlement.
func (e *Engine) onSessionSettleResponse(ctx context.Context, topic string, rec domain.HistoryRecord, res jsonrpc.Response) {
	if res.IsError() {
		e.log.Warn("settlement refused", zap.String("topic", topic), zap.String("message", res.Error.Message))
		e.logTeardown("session", e.deleteSession(ctx, topic))
		e.waiters.deliver(rec.Request.Method, res.ID, outcome{err: *res.Error})
		return
	}
	session, err := e.sessions.Update(ctx, topic, func(s *domain.Session) { s.Acknowledged = true })
	e.waiters.deliver(rec.Request.Method, res.ID, outcome{session: session, err: err})
}

func decodeReason(req jsonrpc.Request) (domain.ErrorReason, error) {
	var reason domain.ErrorReason
	if err := jsonrpc.DecodeParams(req, &reason); err != nil {
		return reason, domain.MissingOrInvalid(err.Error())
	}
	if !domain.IsValidErrorReason(reason) {
		return reason, domain.MissingOrInvalid("delete reason")
	}
	return reason, nil
}
