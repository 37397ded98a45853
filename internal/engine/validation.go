package engine

import (
	"context"
	"strconv"

	"signclient/internal/domain"
)

type topicKind int

const (
	topicSession topicKind = iota
	topicPairing
)

func (e *Engine) isValidConnect(ctx context.Context, p ConnectParams) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	if !domain.IsValidNamespaces(p.RequiredNamespaces) {
		return domain.MissingOrInvalid("connect requiredNamespaces")
	}
	if !domain.IsValidRelays(p.Relays) {
		return domain.MissingOrInvalid("connect relays")
	}
	if p.PairingTopic != "" {
		if _, err := e.isValidPairingTopic(ctx, p.PairingTopic); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) isValidApprove(ctx context.Context, p ApproveParams) (domain.Proposal, error) {
	if err := e.checkInitialized(); err != nil {
		return domain.Proposal{}, err
	}
	proposal, err := e.isValidProposalID(ctx, p.ID)
	if err != nil {
		return domain.Proposal{}, err
	}
	if !domain.IsValidNamespaces(p.Namespaces) ||
		!domain.SatisfiesNamespaces(proposal.RequiredNamespaces, p.Namespaces) {
		return domain.Proposal{}, domain.MissingOrInvalid("approve namespaces")
	}
	return proposal, nil
}

func (e *Engine) isValidReject(ctx context.Context, p RejectParams) (domain.Proposal, error) {
	if err := e.checkInitialized(); err != nil {
		return domain.Proposal{}, err
	}
	proposal, err := e.isValidProposalID(ctx, p.ID)
	if err != nil {
		return domain.Proposal{}, err
	}
	if !domain.IsValidErrorReason(p.Reason) {
		return domain.Proposal{}, domain.MissingOrInvalid("reject reason")
	}
	return proposal, nil
}

func (e *Engine) isValidUpdate(ctx context.Context, p UpdateParams) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	session, err := e.isValidSessionTopic(ctx, p.Topic)
	if err != nil {
		return err
	}
	if err := isSelfController(session); err != nil {
		return err
	}
	if !domain.IsValidNamespaces(p.Namespaces) ||
		!domain.SatisfiesNamespaces(session.RequiredNamespaces, p.Namespaces) {
		return domain.MissingOrInvalid("update namespaces")
	}
	return nil
}

func (e *Engine) isValidExtend(ctx context.Context, p ExtendParams) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	session, err := e.isValidSessionTopic(ctx, p.Topic)
	if err != nil {
		return err
	}
	return isSelfController(session)
}

func (e *Engine) isValidRequest(ctx context.Context, p RequestParams) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	session, err := e.isValidSessionTopic(ctx, p.Topic)
	if err != nil {
		return err
	}
	if p.Request.Method == "" {
		return domain.MissingOrInvalid("request method")
	}
	return isValidSessionCall(session.Namespaces, p.ChainID, p.Request.Method)
}

func (e *Engine) isValidRespond(ctx context.Context, p RespondParams) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	if _, err := e.isValidSessionTopic(ctx, p.Topic); err != nil {
		return err
	}
	res := p.Response
	if res.ID == 0 || (res.Result == nil) == (res.Error == nil) {
		return domain.MissingOrInvalid("respond response")
	}
	if res.Error != nil && !domain.IsValidErrorReason(*res.Error) {
		return domain.MissingOrInvalid("respond error")
	}
	rec, err := e.history.Get(p.Topic, res.ID)
	if err != nil {
		return err
	}
	if rec.Response != nil {
		return domain.MissingOrInvalid("request already answered: " + strconv.FormatInt(res.ID, 10))
	}
	return nil
}

func (e *Engine) isValidPing(ctx context.Context, p PingParams) (string, error) {
	if err := e.checkInitialized(); err != nil {
		return "", err
	}
	kind, err := e.isValidSessionOrPairingTopic(ctx, p.Topic)
	if err != nil {
		return "", err
	}
	if kind == topicPairing {
		return domain.MethodPairingPing, nil
	}
	return domain.MethodSessionPing, nil
}

func (e *Engine) isValidEmit(ctx context.Context, p EmitParams) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	session, err := e.isValidSessionTopic(ctx, p.Topic)
	if err != nil {
		return err
	}
	if p.Event.Name == "" {
		return domain.MissingOrInvalid("emit event")
	}
	return isValidSessionEvent(session.Namespaces, p.ChainID, p.Event.Name)
}

func (e *Engine) isValidDisconnect(ctx context.Context, p DisconnectParams) (topicKind, error) {
	if err := e.checkInitialized(); err != nil {
		return 0, err
	}
	if p.Reason != nil && !domain.IsValidErrorReason(*p.Reason) {
		return 0, domain.MissingOrInvalid("disconnect reason")
	}
	return e.isValidSessionOrPairingTopic(ctx, p.Topic)
}

// isValidSessionTopic returns the live session on topic. A lapsed session is
// torn down before EXPIRED is returned.
func (e *Engine) isValidSessionTopic(ctx context.Context, topic string) (domain.Session, error) {
	if topic == "" {
		return domain.Session{}, domain.MissingOrInvalid("session topic")
	}
	session, err := e.sessions.Get(topic)
	if err != nil {
		return domain.Session{}, err
	}
	if domain.IsExpired(e.now(), session.Expiry) {
		e.logTeardown("session", e.deleteSession(ctx, topic))
		return domain.Session{}, domain.Expired("session topic: " + topic)
	}
	return session, nil
}

// isValidPairingTopic is isValidSessionTopic for pairings.
func (e *Engine) isValidPairingTopic(ctx context.Context, topic string) (domain.Pairing, error) {
	if topic == "" {
		return domain.Pairing{}, domain.MissingOrInvalid("pairing topic")
	}
	pairing, err := e.pairings.Get(topic)
	if err != nil {
		return domain.Pairing{}, err
	}
	if domain.IsExpired(e.now(), pairing.Expiry) {
		e.logTeardown("pairing", e.deletePairing(ctx, topic))
		return domain.Pairing{}, domain.Expired("pairing topic: " + topic)
	}
	return pairing, nil
}

func (e *Engine) isValidSessionOrPairingTopic(ctx context.Context, topic string) (topicKind, error) {
	switch {
	case topic == "":
		return 0, domain.MissingOrInvalid("topic")
	case e.sessions.Has(topic):
		_, err := e.isValidSessionTopic(ctx, topic)
		return topicSession, err
	case e.pairings.Has(topic):
		_, err := e.isValidPairingTopic(ctx, topic)
		return topicPairing, err
	default:
		return 0, domain.NoMatchingTopic("session or pairing", topic)
	}
}

func (e *Engine) isValidProposalID(ctx context.Context, id int64) (domain.Proposal, error) {
	proposal, err := e.proposals.Get(id)
	if err != nil {
		return domain.Proposal{}, err
	}
	if domain.IsExpired(e.now(), proposal.Expiry) {
		e.logTeardown("proposal", e.deleteProposal(ctx, id))
		return domain.Proposal{}, domain.Expired("proposal id: " + strconv.FormatInt(id, 10))
	}
	return proposal, nil
}

func isValidProposeParams(p domain.SessionProposeParams) error {
	switch {
	case len(p.Relays) == 0 || !domain.IsValidRelays(p.Relays):
		return domain.MissingOrInvalid("propose relays")
	case p.Proposer.PublicKey == "":
		return domain.MissingOrInvalid("propose proposer")
	case !domain.IsValidNamespaces(p.RequiredNamespaces):
		return domain.MissingOrInvalid("propose requiredNamespaces")
	}
	return nil
}

func isValidSettleParams(p domain.SessionSettleParams) error {
	switch {
	case p.Relay.Protocol == "":
		return domain.MissingOrInvalid("settle relay")
	case p.Controller.PublicKey == "":
		return domain.MissingOrInvalid("settle controller")
	case !domain.IsValidNamespaces(p.Namespaces):
		return domain.MissingOrInvalid("settle namespaces")
	case p.Expiry <= 0:
		return domain.MissingOrInvalid("settle expiry")
	}
	return nil
}

func isValidSessionCall(namespaces domain.Namespaces, chainID, method string) error {
	if !domain.HasChain(namespaces, chainID) {
		return domain.MissingOrInvalid("request chainId: " + chainID)
	}
	if !domain.HasMethod(namespaces, chainID, method) {
		return domain.MissingOrInvalid("request method: " + method)
	}
	return nil
}

func isValidSessionEvent(namespaces domain.Namespaces, chainID, event string) error {
	if !domain.HasChain(namespaces, chainID) {
		return domain.MissingOrInvalid("event chainId: " + chainID)
	}
	if !domain.HasEvent(namespaces, chainID, event) {
		return domain.MissingOrInvalid("event name: " + event)
	}
	return nil
}

func isSelfController(s domain.Session) error {
	if s.Controller != s.Self.PublicKey {
		return domain.MissingOrInvalid("session controller: only the controller may change the session")
	}
	return nil
}

func isPeerController(s domain.Session) error {
	if s.Controller != s.Peer.PublicKey {
		return domain.MissingOrInvalid("session controller: peer is not the controller")
	}
	return nil
}
