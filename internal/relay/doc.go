// Package relay provides the topic-based transport peers use to exchange
// encrypted JSON-RPC payloads.
//
// The relay acts as a store-and-forward service. A Hub fans each published
// message out to every other subscriber of its topic; when no other party is
// subscribed the message is retained and delivered on the next subscribe.
//
// Implementations of domain.Relayer:
//   - Local attaches directly to an in-process Hub (tests, embedding).
//   - WebSocket talks to a relay Server over gorilla/websocket.
//
// Server exposes a Hub over WebSocket; cmd/relay runs it.
//
// Wire frames are JSON objects {type, topic, message, id} with type one of
// subscribe, unsubscribe, publish (client to server) or message (server to
// client). Messages are opaque ciphertext; the relay never sees keys.
package relay
