// Package store provides persistence for the sign client's state.
//
// Two layers live here:
//
//   - Storage backends implementing domain.Storage, a JSON key-value
//     contract: MemoryStorage, FileStorage (one JSON file per key, optionally
//     sealed with a passphrase), SQLiteStorage and RedisStorage. NewStorage
//     picks one from Config.
//   - Store[K, V], a generic in-memory map of pairings, sessions or proposals
//     that restores from and persists to a Storage on every change.
//
// All types are safe for concurrent use.
package store
