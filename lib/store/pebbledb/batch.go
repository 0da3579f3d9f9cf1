package pebbledb

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"tablekv/lib/store"
)

// --------------------------------------------------------------------------
// Batch Writer
// --------------------------------------------------------------------------

// batch collects pending mutations and commits them as one atomic engine
// batch. Commit is all-or-nothing and synced to disk; after Commit or Close
// the batch rejects all further use with store.ErrBatchCommitted.
//
// The batch holds the store's lifecycle read lock until Commit or Close, so
// a commit can never race a Reset swapping the engine away underneath it.
type batch struct {
	b      *pebble.Batch
	s      *Store
	unlock func()

	count   int
	setKeys [][]byte // keys to add to the probe once the commit succeeded
	done    bool
}

var _ store.Batch = (*batch)(nil)

// NewBatch creates an atomic write batch against this table, opening the
// engine first if necessary.
//
// Thread-safety: a single Batch must not be shared between goroutines.
func (s *Store) NewBatch() (store.Batch, error) {
	db, unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	return &batch{
		b:      db.NewBatch(),
		s:      s,
		unlock: unlock,
	}, nil
}

// Set stages an upsert of the key-value pair.
func (b *batch) Set(key, value []byte) error {
	if b.done {
		return store.ErrBatchCommitted
	}
	if err := b.b.Set(key, value, nil); err != nil {
		return fmt.Errorf("staging set on table %q: %w", b.s.table, err)
	}
	b.setKeys = append(b.setKeys, append([]byte(nil), key...))
	b.count++
	return nil
}

// Delete stages the removal of a key. The key stays in the membership probe
// until the next reopen, same as with direct deletes.
func (b *batch) Delete(key []byte) error {
	if b.done {
		return store.ErrBatchCommitted
	}
	if err := b.b.Delete(key, nil); err != nil {
		return fmt.Errorf("staging delete on table %q: %w", b.s.table, err)
	}
	b.count++
	return nil
}

// Len returns the number of staged mutations.
func (b *batch) Len() int {
	return b.count
}

// Commit atomically applies every staged mutation, synced to disk. On
// failure none of the batch's effects are guaranteed visible and the batch
// is spent either way.
func (b *batch) Commit() error {
	if b.done {
		return store.ErrBatchCommitted
	}
	b.done = true
	defer b.release()

	if err := b.b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("committing batch of %d mutations on table %q: %w", b.count, b.s.table, err)
	}

	for _, key := range b.setKeys {
		b.s.probe.add(key)
	}
	b.s.metrics.batchCommits.Inc()
	b.s.metrics.batchRecords.Add(b.count)
	return nil
}

// Close discards the batch without applying it. Safe to call after Commit.
func (b *batch) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	b.release()
	return nil
}

func (b *batch) release() {
	_ = b.b.Close()
	b.setKeys = nil
	b.unlock()
}
