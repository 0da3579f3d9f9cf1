// Package memstore implements the table store contract in process memory,
// backed by a concurrent ordered skip-list map. It exists for tests and for
// tables that do not need durability: the full store.Store surface behaves
// exactly like the pebble backend (ordered iteration, atomic batches,
// changelog replay with tombstones, reset), minus the disk.
//
// Iterators operate on a point-in-time snapshot materialized at creation,
// matching the pinned-view semantics of the durable backend's engine
// iterators.
package memstore
