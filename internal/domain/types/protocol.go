package types

import "encoding/json"

// JSON-RPC methods exchanged between peers.
const (
	MethodSessionPropose = "wc_sessionPropose"
	MethodSessionSettle  = "wc_sessionSettle"
	MethodSessionUpdate  = "wc_sessionUpdate"
	MethodSessionExtend  = "wc_sessionExtend"
	MethodSessionRequest = "wc_sessionRequest"
	MethodSessionEvent   = "wc_sessionEvent"
	MethodSessionDelete  = "wc_sessionDelete"
	MethodSessionPing    = "wc_sessionPing"
	MethodPairingDelete  = "wc_pairingDelete"
	MethodPairingPing    = "wc_pairingPing"
)

// SessionProposeParams is the body of wc_sessionPropose.
type SessionProposeParams struct {
	Relays             []RelayProtocolOptions `json:"relays"`
	Proposer           Participant            `json:"proposer"`
	RequiredNamespaces Namespaces             `json:"requiredNamespaces"`
}

// SessionProposeResult is the responder's answer to wc_sessionPropose.
type SessionProposeResult struct {
	Relay              RelayProtocolOptions `json:"relay"`
	ResponderPublicKey string               `json:"responderPublicKey"`
}

// SessionSettleParams is the body of wc_sessionSettle.
type SessionSettleParams struct {
	Relay              RelayProtocolOptions `json:"relay"`
	Namespaces         Namespaces           `json:"namespaces"`
	RequiredNamespaces Namespaces           `json:"requiredNamespaces"`
	Controller         Participant          `json:"controller"`
	Expiry             int64                `json:"expiry"`
}

// SessionUpdateParams is the body of wc_sessionUpdate.
type SessionUpdateParams struct {
	Namespaces Namespaces `json:"namespaces"`
}

// SessionRequestParams is the body of wc_sessionRequest.
type SessionRequestParams struct {
	Request RequestArguments `json:"request"`
	ChainID string           `json:"chainId"`
}

// SessionEvent is an application event forwarded to the peer.
type SessionEvent struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SessionEventParams is the body of wc_sessionEvent.
type SessionEventParams struct {
	Event   SessionEvent `json:"event"`
	ChainID string       `json:"chainId"`
}
