package engine

// EventName names a domain event announced by the engine.
type EventName string

// Domain events.
const (
	EventSessionProposal EventName = "session_proposal"
	EventSessionUpdate   EventName = "session_update"
	EventSessionExtend   EventName = "session_extend"
	EventSessionPing     EventName = "session_ping"
	EventPairingPing     EventName = "pairing_ping"
	EventSessionDelete   EventName = "session_delete"
	EventPairingDelete   EventName = "pairing_delete"
	EventSessionExpire   EventName = "session_expire"
	EventPairingExpire   EventName = "pairing_expire"
	EventSessionRequest  EventName = "session_request"
	EventSessionEvent    EventName = "session_event"
	EventProposalExpire  EventName = "proposal_expire"
)

// Event is delivered to handlers registered with On.
//
// Params holds, by event: domain.Proposal (session_proposal),
// domain.Namespaces (session_update), SessionRequest (session_request),
// SessionEvent (session_event) and domain.ErrorReason (session_delete,
// pairing_delete). Other events carry no params.
type Event struct {
	Name   EventName
	ID     int64
	Topic  string
	Params any
}

// sessionConnect keys the proposer's per-proposal settlement waiter.
const sessionConnect = "session_connect"
