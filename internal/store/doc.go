// Package store persists session metrics in SQLite.
//
// One row is kept per session per run. Rows are append-only and written
// idempotently: the row ID is content-addressed from the run and session,
// so writing the same result twice leaves one row.
//
// # Ordering
//
// Reads never order by wall time. Rows of a run come back ORDER BY
// seq ASC, id ASC COLLATE BINARY, where seq is the session's position in
// its batch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: writes from batch workers are serialized
//
// A metric column is NULL when the evaluator that produces it failed for
// that session; the failure text is kept in the errors column.
package store
