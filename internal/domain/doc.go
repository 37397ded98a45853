// Package domain defines the data models, contracts and shared rules of the
// sign client.
//
//   - types/ holds plain wire and state types.
//   - interfaces/ holds the crypto, relay, storage and heartbeat contracts.
//   - errors.go defines the typed errors every component raises.
//   - namespaces.go holds the namespace and chain validation rules.
package domain
