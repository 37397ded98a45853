package engine

import (
	"signclient/internal/domain"
	"signclient/internal/jsonrpc"
)

// ConnectParams starts a session proposal.
type ConnectParams struct {
	RequiredNamespaces domain.Namespaces
	// PairingTopic reuses an active pairing. Inactive or empty means a new pairing.
	PairingTopic string
	Relays       []domain.RelayProtocolOptions
}

// ConnectResult carries the pairing URI, set only when a new pairing was
// created, and the eventual settled session.
type ConnectResult struct {
	URI      string
	Approval *Pending[domain.Session]
}

// PairParams joins a pairing from a URI.
type PairParams struct {
	URI string
}

// ApproveParams accepts a received proposal.
type ApproveParams struct {
	ID            int64
	Namespaces    domain.Namespaces
	RelayProtocol string
}

// ApproveResult carries the session topic and the peer's acknowledgement.
type ApproveResult struct {
	Topic        string
	Acknowledged *Pending[domain.Session]
}

// RejectParams declines a received proposal.
type RejectParams struct {
	ID     int64
	Reason domain.ErrorReason
}

// UpdateParams replaces a session's namespaces.
type UpdateParams struct {
	Topic      string
	Namespaces domain.Namespaces
}

// ExtendParams refreshes a session's expiry.
type ExtendParams struct {
	Topic string
}

// RequestParams sends an application JSON-RPC call to the peer.
type RequestParams struct {
	Topic   string
	ChainID string
	Request domain.RequestArguments
}

// RespondParams answers a received session request.
type RespondParams struct {
	Topic    string
	Response jsonrpc.Response
}

// PingParams pings a session or pairing peer.
type PingParams struct {
	Topic string
}

// EmitParams forwards an application event to the peer.
type EmitParams struct {
	Topic   string
	ChainID string
	Event   domain.SessionEvent
}

// DisconnectParams ends a session or pairing. A nil Reason sends DELETED.
type DisconnectParams struct {
	Topic  string
	Reason *domain.ErrorReason
}

// FindParams filters sessions by what they grant.
type FindParams struct {
	RequiredNamespaces domain.Namespaces
}

// SessionRequest is the payload of a session_request event.
type SessionRequest struct {
	Request domain.RequestArguments
	ChainID string
}

// SessionEvent is the payload of a session_event event.
type SessionEvent struct {
	Event   domain.SessionEvent
	ChainID string
}
