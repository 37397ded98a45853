package engine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"signclient/internal/crypto"
	"signclient/internal/domain"
	"signclient/internal/expirer"
	"signclient/internal/jsonrpc"
	"signclient/internal/uri"
)

const (
	uriProtocol = "wc"
	uriVersion  = 2
)

// Connect proposes a session. A new pairing is created unless p names an
// active one, in which case the returned URI is empty.
func (e *Engine) Connect(ctx context.Context, p ConnectParams) (ConnectResult, error) {
	if err := e.isValidConnect(ctx, p); err != nil {
		return ConnectResult{}, err
	}

	var topic, pairingURI string
	if p.PairingTopic != "" {
		if pairing, err := e.pairings.Get(p.PairingTopic); err == nil && pairing.Active {
			topic = pairing.Topic
		}
	}
	if topic == "" {
		var err error
		if topic, pairingURI, err = e.createPairing(ctx); err != nil {
			return ConnectResult{}, err
		}
	}

	publicKey, err := e.crypto.GenerateKeyPair(ctx)
	if err != nil {
		return ConnectResult{}, err
	}
	relays := p.Relays
	if len(relays) == 0 {
		relays = []domain.RelayProtocolOptions{{Protocol: domain.DefaultRelayProtocol}}
	}
	params := domain.SessionProposeParams{
		Relays:             relays,
		Proposer:           domain.Participant{PublicKey: publicKey, Metadata: e.metadata},
		RequiredNamespaces: p.RequiredNamespaces,
	}
	req, err := jsonrpc.FormatRequest(domain.MethodSessionPropose, params)
	if err != nil {
		return ConnectResult{}, err
	}
	proposal := domain.Proposal{
		ID:                 req.ID,
		Expiry:             domain.CalcExpiry(e.now(), domain.ProposalTTL),
		PairingTopic:       topic,
		Relays:             relays,
		Proposer:           params.Proposer,
		RequiredNamespaces: p.RequiredNamespaces,
	}
	if err := e.setProposal(ctx, proposal); err != nil {
		return ConnectResult{}, err
	}

	approval := newPending[domain.Session]()
	e.waiters.expect(sessionConnect, req.ID, func(o outcome) { approval.resolve(o.session, o.err) })
	if err := e.sendRequest(ctx, topic, req, ""); err != nil {
		e.waiters.cancel(sessionConnect, req.ID)
		e.logTeardown("proposal", e.deleteProposal(ctx, req.ID))
		return ConnectResult{}, err
	}
	e.log.Info("proposed session", zap.Int64("id", req.ID), zap.String("pairing", topic))
	return ConnectResult{URI: pairingURI, Approval: approval}, nil
}

// Pair joins the pairing described by a URI produced by Connect.
func (e *Engine) Pair(ctx context.Context, p PairParams) (domain.Pairing, error) {
	if err := e.checkInitialized(); err != nil {
		return domain.Pairing{}, err
	}
	params, err := uri.Parse(p.URI)
	if err != nil {
		return domain.Pairing{}, err
	}
	if e.pairings.Has(params.Topic) {
		return domain.Pairing{}, domain.MissingOrInvalid("pairing already exists: " + params.Topic)
	}
	if _, err := e.crypto.SetSymKey(ctx, params.SymKey, params.Topic); err != nil {
		return domain.Pairing{}, err
	}
	pairing := domain.Pairing{
		Topic:  params.Topic,
		Expiry: domain.CalcExpiry(e.now(), domain.PendingPairingTTL),
		Relay:  params.Relay,
	}
	if err := e.pairings.Set(ctx, pairing.Topic, pairing); err != nil {
		return domain.Pairing{}, err
	}
	if err := e.expirer.Set(expirer.Topic(pairing.Topic), pairing.Expiry); err != nil {
		return domain.Pairing{}, err
	}
	if _, err := e.relayer.Subscribe(ctx, pairing.Topic, domain.SubscribeOptions{Relay: pairing.Relay}); err != nil {
		return domain.Pairing{}, err
	}
	e.log.Info("paired", zap.String("topic", pairing.Topic))
	return pairing, nil
}

// Approve settles the session proposed by p.ID. The returned awaitable
// resolves once the proposer acknowledges the settlement.
func (e *Engine) Approve(ctx context.Context, p ApproveParams) (ApproveResult, error) {
	proposal, err := e.isValidApprove(ctx, p)
	if err != nil {
		return ApproveResult{}, err
	}

	selfPublicKey, err := e.crypto.GenerateKeyPair(ctx)
	if err != nil {
		return ApproveResult{}, err
	}
	sessionTopic, err := e.crypto.GenerateSharedKey(ctx, selfPublicKey, proposal.Proposer.PublicKey)
	if err != nil {
		return ApproveResult{}, err
	}
	protocol := p.RelayProtocol
	if protocol == "" {
		protocol = domain.DefaultRelayProtocol
	}
	relay := domain.RelayProtocolOptions{Protocol: protocol}
	if _, err := e.relayer.Subscribe(ctx, sessionTopic, domain.SubscribeOptions{Relay: relay}); err != nil {
		return ApproveResult{}, err
	}

	self := domain.Participant{PublicKey: selfPublicKey, Metadata: e.metadata}
	session := domain.Session{
		Topic:              sessionTopic,
		Expiry:             domain.CalcExpiry(e.now(), domain.SessionTTL),
		Relay:              relay,
		Controller:         selfPublicKey,
		Namespaces:         p.Namespaces,
		RequiredNamespaces: proposal.RequiredNamespaces,
		Self:               self,
		Peer:               proposal.Proposer,
	}
	if err := e.sessions.Set(ctx, sessionTopic, session); err != nil {
		return ApproveResult{}, err
	}
	if err := e.expirer.Set(expirer.Topic(sessionTopic), session.Expiry); err != nil {
		return ApproveResult{}, err
	}

	req, err := jsonrpc.FormatRequest(domain.MethodSessionSettle, domain.SessionSettleParams{
		Relay:              relay,
		Namespaces:         session.Namespaces,
		RequiredNamespaces: session.RequiredNamespaces,
		Controller:         self,
		Expiry:             session.Expiry,
	})
	if err != nil {
		return ApproveResult{}, err
	}
	acknowledged := newPending[domain.Session]()
	e.waiters.expect(domain.MethodSessionSettle, req.ID, func(o outcome) { acknowledged.resolve(o.session, o.err) })
	if err := e.sendRequest(ctx, sessionTopic, req, ""); err != nil {
		e.waiters.cancel(domain.MethodSessionSettle, req.ID)
		e.logTeardown("session", e.deleteSession(ctx, sessionTopic))
		return ApproveResult{}, err
	}

	if proposal.PairingTopic != "" {
		e.setPeerMetadata(ctx, proposal.PairingTopic, proposal.Proposer.Metadata)
		result := domain.SessionProposeResult{Relay: relay, ResponderPublicKey: selfPublicKey}
		if err := e.sendResult(ctx, proposal.PairingTopic, proposal.ID, result); err != nil {
			return ApproveResult{}, err
		}
	}
	if err := e.deleteProposal(ctx, proposal.ID); err != nil {
		return ApproveResult{}, err
	}
	if proposal.PairingTopic != "" {
		if err := e.activatePairing(ctx, proposal.PairingTopic); err != nil {
			return ApproveResult{}, err
		}
	}
	e.log.Info("approved session", zap.Int64("id", proposal.ID), zap.String("topic", sessionTopic))
	return ApproveResult{Topic: sessionTopic, Acknowledged: acknowledged}, nil
}

// Reject declines the proposal p.ID and tells the proposer why.
func (e *Engine) Reject(ctx context.Context, p RejectParams) error {
	proposal, err := e.isValidReject(ctx, p)
	if err != nil {
		return err
	}
	if proposal.PairingTopic != "" {
		if err := e.sendError(ctx, proposal.PairingTopic, proposal.ID, p.Reason); err != nil {
			return err
		}
	}
	e.log.Info("rejected session", zap.Int64("id", proposal.ID), zap.Int("code", p.Reason.Code))
	return e.deleteProposal(ctx, proposal.ID)
}

// Update replaces the session namespaces locally and on the peer.
func (e *Engine) Update(ctx context.Context, p UpdateParams) (*Pending[struct{}], error) {
	if err := e.isValidUpdate(ctx, p); err != nil {
		return nil, err
	}
	req, err := jsonrpc.FormatRequest(domain.MethodSessionUpdate, domain.SessionUpdateParams{Namespaces: p.Namespaces})
	if err != nil {
		return nil, err
	}
	acknowledged := e.expectAck(domain.MethodSessionUpdate, req.ID)
	var previous domain.Namespaces
	if _, err := e.sessions.Update(ctx, p.Topic, func(s *domain.Session) {
		previous, s.Namespaces = s.Namespaces, p.Namespaces
	}); err != nil {
		e.waiters.cancel(domain.MethodSessionUpdate, req.ID)
		return nil, err
	}
	if err := e.sendRequest(ctx, p.Topic, req, ""); err != nil {
		if _, rerr := e.sessions.Update(ctx, p.Topic, func(s *domain.Session) { s.Namespaces = previous }); rerr != nil {
			e.log.Warn("namespaces not restored", zap.String("topic", p.Topic), zap.Error(rerr))
		}
		return nil, err
	}
	return acknowledged, nil
}

// Extend pushes the session expiry a full session lifetime into the future.
func (e *Engine) Extend(ctx context.Context, p ExtendParams) (*Pending[struct{}], error) {
	if err := e.isValidExtend(ctx, p); err != nil {
		return nil, err
	}
	req, err := jsonrpc.FormatRequest(domain.MethodSessionExtend, struct{}{})
	if err != nil {
		return nil, err
	}
	acknowledged := e.expectAck(domain.MethodSessionExtend, req.ID)
	if err := e.setSessionExpiry(ctx, p.Topic, domain.CalcExpiry(e.now(), domain.SessionTTL)); err != nil {
		e.waiters.cancel(domain.MethodSessionExtend, req.ID)
		return nil, err
	}
	if err := e.sendRequest(ctx, p.Topic, req, ""); err != nil {
		return nil, err
	}
	return acknowledged, nil
}

// Request sends an application call to the peer and blocks until it
// responds or ctx is done.
func (e *Engine) Request(ctx context.Context, p RequestParams) (json.RawMessage, error) {
	if err := e.isValidRequest(ctx, p); err != nil {
		return nil, err
	}
	req, err := jsonrpc.FormatRequest(domain.MethodSessionRequest, domain.SessionRequestParams{
		Request: p.Request,
		ChainID: p.ChainID,
	})
	if err != nil {
		return nil, err
	}
	result := newPending[json.RawMessage]()
	e.waiters.expect(domain.MethodSessionRequest, req.ID, func(o outcome) { result.resolve(o.result, o.err) })
	if err := e.sendRequest(ctx, p.Topic, req, p.ChainID); err != nil {
		return nil, err
	}
	raw, err := result.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		e.waiters.cancel(domain.MethodSessionRequest, req.ID)
	}
	return raw, err
}

// Respond answers a session request previously received on p.Topic.
func (e *Engine) Respond(ctx context.Context, p RespondParams) error {
	if err := e.isValidRespond(ctx, p); err != nil {
		return err
	}
	res := p.Response
	res.JSONRPC = jsonrpc.Version
	return e.sendResponse(ctx, p.Topic, res)
}

// Ping round-trips a ping on a session or pairing topic.
func (e *Engine) Ping(ctx context.Context, p PingParams) error {
	method, err := e.isValidPing(ctx, p)
	if err != nil {
		return err
	}
	req, err := jsonrpc.FormatRequest(method, struct{}{})
	if err != nil {
		return err
	}
	ack := e.expectAck(method, req.ID)
	if err := e.sendRequest(ctx, p.Topic, req, ""); err != nil {
		return err
	}
	if _, err := ack.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			e.waiters.cancel(method, req.ID)
		}
		return err
	}
	return nil
}

// Emit forwards an event to the peer without waiting for acknowledgement.
func (e *Engine) Emit(ctx context.Context, p EmitParams) error {
	if err := e.isValidEmit(ctx, p); err != nil {
		return err
	}
	req, err := jsonrpc.FormatRequest(domain.MethodSessionEvent, domain.SessionEventParams{
		Event:   p.Event,
		ChainID: p.ChainID,
	})
	if err != nil {
		return err
	}
	return e.sendRequest(ctx, p.Topic, req, p.ChainID)
}

// Disconnect notifies the peer and tears down the session or pairing.
func (e *Engine) Disconnect(ctx context.Context, p DisconnectParams) error {
	kind, err := e.isValidDisconnect(ctx, p)
	if err != nil {
		return err
	}
	reason := domain.Deleted("user disconnected").Reason()
	if p.Reason != nil {
		reason = *p.Reason
	}

	method, teardown := domain.MethodSessionDelete, e.deleteSession
	if kind == topicPairing {
		method, teardown = domain.MethodPairingDelete, e.deletePairing
	}
	req, err := jsonrpc.FormatRequest(method, reason)
	if err != nil {
		return err
	}
	if err := e.sendRequest(ctx, p.Topic, req, ""); err != nil {
		return err
	}
	e.log.Info("disconnected", zap.String("topic", p.Topic), zap.String("method", method))
	return teardown(ctx, p.Topic)
}

// Find returns the sessions whose namespaces satisfy p.RequiredNamespaces.
func (e *Engine) Find(p FindParams) ([]domain.Session, error) {
	if err := e.checkInitialized(); err != nil {
		return nil, err
	}
	if !domain.IsValidNamespaces(p.RequiredNamespaces) {
		return nil, domain.MissingOrInvalid("find requiredNamespaces")
	}
	var out []domain.Session
	for _, s := range e.sessions.Values() {
		if domain.SatisfiesNamespaces(p.RequiredNamespaces, s.Namespaces) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (e *Engine) createPairing(ctx context.Context) (topic, pairingURI string, err error) {
	symKey, err := crypto.GenerateRandomBytes32()
	if err != nil {
		return "", "", err
	}
	if topic, err = e.crypto.SetSymKey(ctx, symKey, ""); err != nil {
		return "", "", err
	}
	pairing := domain.Pairing{
		Topic:  topic,
		Expiry: domain.CalcExpiry(e.now(), domain.PendingPairingTTL),
		Relay:  domain.RelayProtocolOptions{Protocol: domain.DefaultRelayProtocol},
	}
	pairingURI = uri.Format(uri.Params{
		Protocol: uriProtocol,
		Version:  uriVersion,
		Topic:    topic,
		SymKey:   symKey,
		Relay:    pairing.Relay,
	})
	if err := e.pairings.Set(ctx, topic, pairing); err != nil {
		return "", "", err
	}
	if _, err := e.relayer.Subscribe(ctx, topic, domain.SubscribeOptions{Relay: pairing.Relay}); err != nil {
		return "", "", err
	}
	if err := e.expirer.Set(expirer.Topic(topic), pairing.Expiry); err != nil {
		return "", "", err
	}
	e.log.Info("created pairing", zap.String("topic", topic))
	return topic, pairingURI, nil
}

func (e *Engine) activatePairing(ctx context.Context, topic string) error {
	expiry := domain.CalcExpiry(e.now(), domain.ActivePairingTTL)
	if _, err := e.pairings.Update(ctx, topic, func(p *domain.Pairing) {
		p.Active = true
		p.Expiry = expiry
	}); err != nil {
		return err
	}
	e.log.Debug("activated pairing", zap.String("topic", topic))
	return e.expirer.Set(expirer.Topic(topic), expiry)
}

func (e *Engine) setPeerMetadata(ctx context.Context, topic string, metadata domain.Metadata) {
	if _, err := e.pairings.Update(ctx, topic, func(p *domain.Pairing) { p.PeerMetadata = &metadata }); err != nil {
		e.log.Warn("peer metadata not stored", zap.String("pairing", topic), zap.Error(err))
	}
}

func (e *Engine) setProposal(ctx context.Context, proposal domain.Proposal) error {
	if err := e.proposals.Set(ctx, proposal.ID, proposal); err != nil {
		return err
	}
	return e.expirer.Set(expirer.ID(proposal.ID), proposal.Expiry)
}

func (e *Engine) setSessionExpiry(ctx context.Context, topic string, expiry int64) error {
	if _, err := e.sessions.Update(ctx, topic, func(s *domain.Session) { s.Expiry = expiry }); err != nil {
		return err
	}
	return e.expirer.Set(expirer.Topic(topic), expiry)
}

// expectAck registers a waiter whose result is only checked for an error.
func (e *Engine) expectAck(method string, id int64) *Pending[struct{}] {
	ack := newPending[struct{}]()
	e.waiters.expect(method, id, func(o outcome) { ack.resolve(struct{}{}, o.err) })
	return ack
}
