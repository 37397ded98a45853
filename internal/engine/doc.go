// Package engine implements session negotiation between a proposer (dapp)
// and a responder (wallet) over an encrypted relay.
//
// The Engine owns the pairing, session and proposal lifecycles:
//
//   - connect/pair/approve/reject negotiate a session over a pairing topic.
//   - update/extend/request/respond/ping/emit operate on a settled session.
//   - disconnect, peer deletes and expiry tear entities down.
//
// Outbound requests are recorded in history and correlated with their
// responses through one-shot waiters keyed by (method, id). Inbound requests
// are dispatched by method; a handler that fails replies with a JSON-RPC
// error instead of propagating. Domain events are announced through On.
package engine
