// Package history records JSON-RPC requests by id so that responses can be
// matched back to the request, and the method, that caused them.
//
// A record is created at most once per id and resolved at most once. Lookups
// require the topic to match, guarding against id collisions across topics.
// Every change persists the full table and is followed by a sync event.
package history
