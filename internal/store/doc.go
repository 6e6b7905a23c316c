// Package store provides relational storage for the comics catalog.
//
// The store holds:
//   - Entity tables: Issues, Series, Events, Stories, Characters, Creators
//   - Value tables: Images (by path), URLs (by type and url)
//   - PurchasedComics: ownership overlay keyed by issue id
//   - scanned_codes: the acquisition queue written by the scanner
//   - Join tables named <Parent>_has_<Child>, one per pair of kinds
//
// # Write Rules
//
// Stubs: InsertStub writes id, title and resource URI only when the row is
// absent (ON CONFLICT DO NOTHING). It never overwrites.
//
// Merging upsert: Upsert inserts a full record or merges it into the
// existing row with COALESCE(excluded.col, table.col) for every column, so
// an incoming NULL never erases a stored value.
//
// Statement isolation: every write runs in its own transaction. A failure
// rolls back that statement only and surfaces as *WriteError.
//
// Links: Link writes a join row at most once per (left, right[, role]).
//
// # Database Configuration
//
// SQLite (default):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// PostgreSQL via pgx: the same schema and queries, with placeholders
// rebound to $n.
//
// Timestamps are stored as RFC 3339 UTC text on both engines.
package store
