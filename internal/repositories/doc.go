// Package repositories implements SQLite persistence for import history.
//
// Only reconciliation outcomes are stored: which playlist was created or extended, from which
// setlist, and how many tracks were added. Resolutions and candidates are never persisted.
//
// Key Implementations:
//   - [ImportRepository] : Import history with playlist lookups and newest-first listing
//
// Sequence numbers provide stable, human-readable ordering (e.g., import #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
