// Package store provides SQLite-backed durable storage for the trick
// repository and the document log.
//
// The store is an append-only log with two tables:
//   - trick_events: every creation, modification and deletion of a trick,
//     keyed by trick index
//   - documents: every resolved document with its answer
//
// Replaying trick_events in seq order rebuilds the repository. A deletion
// leaves a tombstone so indices are never reused.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All ordering uses the seq column, never timestamps.
package store
