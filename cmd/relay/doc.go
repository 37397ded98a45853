// Package main runs the WebSocket relay that signclient peers publish to
// and subscribe through. Payloads are end-to-end encrypted; the relay only
// routes opaque bytes by topic.
//
// Endpoints
//
//	GET /ws
//	    Upgrade to a WebSocket. Clients exchange JSON frames:
//	    {"type":"subscribe","topic":T}, {"type":"unsubscribe","topic":T},
//	    {"type":"publish","topic":T,"message":<base64>} and receive
//	    {"type":"message","topic":T,"message":<base64>}.
//
//	GET /healthz
//	    Liveness probe, answers 200 "ok".
//
// Behaviour
//
//   - A publisher never receives its own messages.
//   - A message published while no other client is subscribed is retained
//     (per topic, bounded, with a TTL) and delivered to the next subscriber.
//   - All state is held in memory and lost on process exit.
//   - The default listen address is :8080.
package main
