// Package store provides the SQLite-backed dispatch log.
//
// Every dispatch the engine evaluates is appended with its outcome, and
// successful dispatches keep the placements that were rendered. The log is
// what the trace command reads back.
//
// # Ordering
//
// Rows are stamped with the engine's logical clock. All queries order by
// seq (then index for placements), never by wall time, so a trace reads the
// same on every run.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING: re-writing a dispatch with the same id
// is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
