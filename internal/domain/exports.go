package domain

import (
	interfaces "signclient/internal/domain/interfaces"
	types "signclient/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Metadata             = types.Metadata
	RelayProtocolOptions = types.RelayProtocolOptions
	Participant          = types.Participant
	ErrorReason          = types.ErrorReason
	Pairing              = types.Pairing
	Namespace            = types.Namespace
	Namespaces           = types.Namespaces
	Proposal             = types.Proposal
	Session              = types.Session
	ExpiryRecord         = types.ExpiryRecord
	RequestArguments     = types.RequestArguments
	HistoryResponse      = types.HistoryResponse
	HistoryRecord        = types.HistoryRecord
	SessionProposeParams = types.SessionProposeParams
	SessionProposeResult = types.SessionProposeResult
	SessionSettleParams  = types.SessionSettleParams
	SessionUpdateParams  = types.SessionUpdateParams
	SessionRequestParams = types.SessionRequestParams
	SessionEvent         = types.SessionEvent
	SessionEventParams   = types.SessionEventParams
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Crypto           = interfaces.Crypto
	Relayer          = interfaces.Relayer
	MessageEvent     = interfaces.MessageEvent
	SubscribeOptions = interfaces.SubscribeOptions
	Storage          = interfaces.Storage
	Heartbeat        = interfaces.Heartbeat
)

// JSON-RPC methods re-exported from the types subpackage.
const (
	MethodSessionPropose = types.MethodSessionPropose
	MethodSessionSettle  = types.MethodSessionSettle
	MethodSessionUpdate  = types.MethodSessionUpdate
	MethodSessionExtend  = types.MethodSessionExtend
	MethodSessionRequest = types.MethodSessionRequest
	MethodSessionEvent   = types.MethodSessionEvent
	MethodSessionDelete  = types.MethodSessionDelete
	MethodSessionPing    = types.MethodSessionPing
	MethodPairingDelete  = types.MethodPairingDelete
	MethodPairingPing    = types.MethodPairingPing
)
