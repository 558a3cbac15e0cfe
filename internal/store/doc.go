// Package store provides SQLite-backed storage for exploration sessions and
// the tickets they produce.
//
// # Critical Patterns
//
// Idempotent Writes:
//   - WriteTicket uses ON CONFLICT DO NOTHING on (session_id, id)
//   - Re-running a ticket hook after a retry never duplicates rows
//
// Logical Ordering:
//   - Sessions are ordered by seq, a store-assigned counter
//   - Tickets are ordered by seq, their discovery index in the session
//   - All queries end with ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Canonical Encoding:
//   - Paths and traces are stored as canonical JSON (internal/ir)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
