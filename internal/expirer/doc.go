// Package expirer keeps a registry of expiry deadlines for topics and
// request ids and announces when they lapse.
//
//   - Keys are Topic or ID values, stored as "topic:<t>" or "id:<n>" targets.
//   - Set fires an expired event at once if the deadline has already passed.
//   - Every heartbeat pulse sweeps the registry.
//   - The registry is persisted after each created, deleted or expired event,
//     followed by a sync event.
package expirer
