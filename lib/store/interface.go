package store

import (
	"errors"
	"fmt"

	"tablekv/lib/changelog"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a store for a table name and its
// resolved on-disk directory. It is used to abstract the concrete backend
// from the table manager and from shared test suites.
type Factory func(table, dir string) (Store, error)

// OffsetSource is the read side of the checkpoint subsystem. A store queries
// it to answer PersistedOffset; it never writes through it.
type OffsetSource interface {
	// GetOffset returns the last durably recorded offset for a partition.
	// found=false means the partition has never been checkpointed.
	GetOffset(tp changelog.TopicPartition) (offset int64, found bool, err error)
}

// Store is the byte-keyed contract every table backend implements.
// Keys and values are opaque byte strings; iteration order is ascending
// bytewise key order. Absence of a key is a regular result, never an error.
//
// Thread-safety: all methods are safe for concurrent use. ApplyChangelogBatch
// and Reset are additionally serialized against each other per store, so at
// most one of them runs at a time.
type Store interface {
	// Get returns the value stored for key. The boolean return value
	// indicates whether a value for the key was found.
	Get(key []byte) (value []byte, found bool, err error)
	// Set inserts or updates a key-value pair, overwriting any old value.
	Set(key, value []byte) (err error)
	// Delete removes a key-value pair. Deleting a missing key is a no-op.
	Delete(key []byte) (err error)
	// Has reports whether a value for key exists. Implementations may answer
	// "definitely absent" from an approximate membership probe without
	// touching disk, but a positive probe must be confirmed by a real
	// lookup: Has never returns false negatives and never false positives.
	Has(key []byte) (found bool, err error)

	// Keys returns a fresh iterator over all keys in ascending byte order.
	// The iterator yields no values.
	Keys() (it Iterator, err error)
	// Values returns a fresh iterator over all values, ordered by their keys.
	// The iterator yields no keys.
	Values() (it Iterator, err error)
	// Items returns a fresh iterator over all key-value pairs in ascending
	// key order.
	Items() (it Iterator, err error)
	// Len counts all entries by draining a keys-only iteration. O(n).
	Len() (n int, err error)

	// NewBatch creates an atomic write batch. Staged mutations become
	// visible all at once on Commit, or not at all.
	NewBatch() (b Batch, err error)
	// ApplyChangelogBatch stages every event in one batch and commits it
	// once: Set(toKey(Key), toValue(Value)) for valued events, Delete of the
	// transformed key for tombstones (nil Value). A nil transform is the
	// identity. Applying the same batch twice yields the same final state.
	ApplyChangelogBatch(events []changelog.Event, toKey, toValue changelog.Transform) (err error)
	// PersistedOffset returns the last offset whose effects are durable for
	// the given partition, delegated to the configured OffsetSource.
	// found=false means no offset was ever recorded (fresh partition) or no
	// source is configured.
	PersistedOffset(tp changelog.TopicPartition) (offset int64, found bool, err error)

	// Flush forces buffered writes to stable storage. A no-op for backends
	// without a write buffer or when nothing is open.
	Flush() (err error)
	// Reset discards the store's entire contents and identity on disk so the
	// next access starts from an empty store. Resetting a store that never
	// touched disk is a no-op, not an error.
	Reset() (err error)
	// Clear is reserved for removing all entries while keeping the store's
	// on-disk identity. No backend implements it; it returns ErrNotSupported.
	// Use Reset instead.
	Clear() (err error)
	// Close releases the underlying engine and all associated resources
	// without deleting data. A later access reopens lazily.
	Close() (err error)
}

// Iterator walks store entries in ascending key order. It starts positioned
// before the first entry; Next advances and reports whether an entry is
// available. Key and Value return copies that stay valid after the iterator
// advances. A single Iterator must not be used from multiple goroutines.
type Iterator interface {
	// Next advances to the next entry. It returns false when the iteration
	// is exhausted or an error occurred; check Err afterwards.
	Next() bool
	// Key returns the current key, or nil for values-only iterations.
	Key() []byte
	// Value returns the current value, or nil for keys-only iterations.
	Value() []byte
	// Err returns the first error encountered while iterating.
	Err() error
	// Close releases iterator resources. Must always be called.
	Close() error
}

// Batch collects pending mutations and applies them atomically on Commit.
// A Batch is single-use: after Commit or Close all further calls return
// ErrBatchCommitted.
type Batch interface {
	// Set stages an upsert of the key-value pair.
	Set(key, value []byte) (err error)
	// Delete stages the removal of a key.
	Delete(key []byte) (err error)
	// Len returns the number of staged mutations.
	Len() (n int)
	// Commit atomically applies every staged mutation.
	Commit() (err error)
	// Close discards the batch. Safe to call after Commit.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// Sentinel errors returned by Store and Batch implementations.
var (
	// ErrNotSupported is returned by operations a backend deliberately does
	// not implement, such as Clear.
	ErrNotSupported = errors.New("store: operation not supported")
	// ErrBatchCommitted is returned when a batch is used after Commit or
	// Close.
	ErrBatchCommitted = errors.New("store: batch already committed or closed")
)

// OpenError reports that the underlying storage engine could not be opened.
// It carries the table name and on-disk path so an operator can locate the
// failing store, and wraps the engine's own error as the cause.
type OpenError struct {
	Table string // logical table name
	Path  string // on-disk directory of the engine
	Err   error  // underlying cause
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("store: open table %q at %s: %v", e.Table, e.Path, e.Err)
}

// Unwrap returns the underlying engine error.
func (e *OpenError) Unwrap() error {
	return e.Err
}
