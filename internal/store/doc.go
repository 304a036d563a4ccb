// Package store provides SQLite-backed durable storage for run records.
//
// Each run is written once, with its cause chain encoded as nested JSON by
// the codec package, and is never updated afterwards. Reads decode the
// chain as stored: a record written under an older, looser policy comes
// back unchanged.
//
// Tables:
//   - runs: one row per run, UNIQUE(project, number)
//   - users: identity directory used to render user causes
//
// # Ordering
//
// Run listings are ordered by build number; global listings by the logical
// sequence number assigned by the scheduler (seq ASC, id ASC). Wall-clock
// time is never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
