// Package journal keeps an append-only audit trail of scheduler ticks.
//
// It records what happened; it never feeds work back into the scheduler.
// Backends:
//   - file: JSON Lines, one entry per line
//   - sqlite: a single table in a SQLite database (modernc.org/sqlite)
package journal
