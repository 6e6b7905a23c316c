// Package engine reconciles provider records into the catalog store.
//
// Every item, whether it starts from a scanned code, an explicit id or a
// stale row, goes through the same path:
//
//  1. Lookup: the provider must return exactly one record. Empty and
//     ambiguous answers are skipped before anything is written.
//  2. Extract: the record becomes a catalog.Entity plus its references.
//  3. Resolve: every referenced row that does not exist yet is inserted as
//     a stub (Resolver.MaterializeStubs). Foreign keys pointing at stubs
//     that could not be written are cleared.
//  4. Upsert: the record is merged into its row; unset fields never erase
//     stored values.
//  5. Link: join rows are written once per pair (and role, for creators).
//
// ARCHITECTURE:
//
// Single-threaded batch. Items are processed strictly in order and each is
// fully committed before the next begins. Every store statement commits on
// its own, so a failure loses one statement only. Cancellation is checked
// between items.
//
// Each operation returns a Report stamped with a UUIDv7 run id and one
// Outcome per item. Errors are classified into OutcomeCode values by
// Classify; "nothing committed" is the worst result a batch can have.
//
// Acquisition: scanned codes are read from an AcquisitionSource into a
// Pipeline (queued, resolved, committed). Committed codes are removed from
// the source.
//
// Staleness: SweepStale re-syncs rows that are stubs or whose modified
// timestamp is older than the configured age, a page at a time.
package engine
