// Package crypto implements the key management and payload sealing used by
// the sign client.
//
// Contents
//
//   - X25519 key generation and Diffie–Hellman (generateX25519, dh)
//   - HKDF-SHA256 derivation of the symmetric key two peers share
//   - Topic derivation: a topic is the hex SHA-256 of its symmetric key
//   - ChaCha20-Poly1305 envelopes for JSON-RPC payloads (seal, open)
//   - A persistent Keychain of private keys and symmetric keys
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// Keys cross package boundaries as lowercase hex strings. Raw key bytes are
// wiped after use where the runtime allows it.
package crypto
