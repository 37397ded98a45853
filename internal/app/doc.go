// Package app wires application dependencies for the CLI and embedders.
//
// It loads Config from YAML, .env and the environment, builds the storage
// backend, keychain, relayer, stores, history, expirer and engine from it
// (Wire), and exposes the result as a Client whose calls forward into the
// engine and log failures.
package app
