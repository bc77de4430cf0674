// Package history provides a SQLite-backed journal of committed load orders.
//
// Every successful mutation of a game handle can be recorded as an Entry:
// the full load order and active set at that moment, the operation that
// produced it and the installation it belongs to. Entries can be listed and
// fed back into an engine to restore an earlier state.
//
// # Ordering
//
// Entries are ordered by seq, an INTEGER PRIMARY KEY assigned on insert,
// never by the recorded_at wall-clock column. Listing is always
// ORDER BY seq so output is deterministic.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// The journal is advisory. Losing it never affects the load order files
// themselves.
package history
