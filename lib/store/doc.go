// Package store defines the byte-keyed storage contract that backs the
// tables of a stateful stream processor, together with the iterator and
// batch abstractions and the error types shared by all backends.
//
// The package focuses on:
//   - A unified interface (Store) for table storage across different
//     backends, covering point access, ordered iteration, atomic batches,
//     changelog replay and recovery-offset queries
//   - Explicit absence: missing keys are a normal result, not an error
//   - Pluggable backends through the Factory pattern
//
// Key Components:
//
//   - Store Interface: the core abstraction. Point operations (Get, Set,
//     Delete, Has), three ordered iteration primitives (Keys, Values, Items)
//     plus an O(n) Len, the batch builder, changelog application with
//     optional key/value transforms, offset delegation and the
//     Reset/Close lifecycle.
//
//   - Iterator and Batch: forward-only ordered traversal with copy
//     semantics, and an all-or-nothing mutation accumulator with one
//     explicit Commit.
//
//   - OffsetSource: the narrow read interface to the checkpoint subsystem
//     (see lib/checkpoints). Stores only ever read offsets.
//
//   - Error System: sentinel errors (ErrNotSupported, ErrBatchCommitted)
//     plus OpenError, a typed error carrying table name and path for any
//     engine-open failure.
//
// Implementations:
//
//	The module ships two implementations of the Store interface:
//
//	- Pebble Store (pebbledb): the durable backend over the pebble LSM
//	  engine, with lazy engine initialization, a bloom-filter membership
//	  probe in front of Has, and directory-destroying Reset. This is the
//	  backend production tables run on.
//	  Available in the "tablekv/lib/store/pebbledb" package.
//
//	- Memory Store (memstore): a concurrent ordered in-memory backend used
//	  in tests and for tables that do not need durability.
//	  Available in the "tablekv/lib/store/memstore" package.
//
// Both implementations are exercised by the shared conformance suite in
// "tablekv/lib/store/storetest".
package store
