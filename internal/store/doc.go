// Package store persists simulation traces in SQLite.
//
// A trace is a run header plus one row per frame. Frames are append-only and
// idempotent per (run_id, idx), so a recorder that retries a write does not
// duplicate rows.
//
// Ordering never uses wall-clock time. Rows carry the logical seq stamped by
// the engine clock and every multi-row query orders by it, breaking ties on
// the frame index or run ID:
//
//	SELECT ... FROM frames WHERE run_id = ? ORDER BY seq ASC, idx ASC
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: frames must belong to a known run
package store
