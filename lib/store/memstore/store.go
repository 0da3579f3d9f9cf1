package memstore

import (
	"bytes"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"tablekv/lib/changelog"
	"tablekv/lib/store"
)

type orderedMap = skipmap.FuncMap[[]byte, []byte]

func newOrderedMap() *orderedMap {
	return skipmap.NewFunc[[]byte, []byte](func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
}

// --------------------------------------------------------------------------
// Core Store Structure
// --------------------------------------------------------------------------

// Store is the in-memory store.Store implementation over a concurrent
// ordered skip-list map. It keeps the full contract of the durable backend
// (ordered iteration, atomic batches, changelog replay, reset) without any
// disk involvement; Reset simply swaps in an empty map.
//
// Thread-safety: safe for concurrent use. Point operations run lock-free on
// the skip-list under a shared read lock; batch commits and Reset take the
// write lock so their effects become visible atomically.
type Store struct {
	table   string
	offsets store.OffsetSource

	mu sync.RWMutex
	m  *orderedMap

	// applyMu serializes ApplyChangelogBatch and Reset, matching the
	// contract of the durable backend.
	applyMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory table store. offsets may be nil, in which
// case PersistedOffset reports absent for every partition.
func New(table string, offsets store.OffsetSource) *Store {
	return &Store{
		table:   table,
		offsets: offsets,
		m:       newOrderedMap(),
	}
}

// --------------------------------------------------------------------------
// Point-Access Operations
// --------------------------------------------------------------------------

// Get returns the value stored for key, or found=false if there is none.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, found := s.m.Load(key)
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set inserts or updates a key-value pair. Key and value are copied, so the
// caller may reuse its slices.
func (s *Store) Set(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.m.Store(append([]byte(nil), key...), append([]byte(nil), value...))
	return nil
}

// Delete removes a key-value pair. Deleting a missing key is a no-op.
func (s *Store) Delete(key []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.m.Delete(key)
	return nil
}

// Has reports whether a value for key exists. The in-memory backend answers
// exactly; the approximate probe is a property of the durable backend, not
// of the contract.
func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := s.m.Load(key)
	return found, nil
}

// --------------------------------------------------------------------------
// Iteration Primitives
// --------------------------------------------------------------------------

// iterator walks a materialized point-in-time snapshot, so concurrent
// writes never mutate a live iteration.
type iterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

var _ store.Iterator = (*iterator)(nil)

func (i *iterator) Next() bool {
	n := len(i.keys)
	if n == 0 {
		n = len(i.values)
	}
	if i.pos >= n {
		return false
	}
	i.pos++
	return true
}

func (i *iterator) Key() []byte {
	if i.keys == nil {
		return nil
	}
	return i.keys[i.pos-1]
}

func (i *iterator) Value() []byte {
	if i.values == nil {
		return nil
	}
	return i.values[i.pos-1]
}

func (i *iterator) Err() error { return nil }

func (i *iterator) Close() error { return nil }

// snapshot copies the requested parts of all entries in ascending key
// order. Range on the skip-list observes a consistent forward pass; the
// shared read lock keeps batch commits from interleaving with it.
func (s *Store) snapshot(withKeys, withValues bool) (keys, values [][]byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.m.Range(func(key, value []byte) bool {
		if withKeys {
			keys = append(keys, append([]byte(nil), key...))
		}
		if withValues {
			values = append(values, append([]byte(nil), value...))
		}
		return true
	})
	return keys, values
}

// Keys returns a fresh iterator over all keys in ascending byte order.
func (s *Store) Keys() (store.Iterator, error) {
	keys, _ := s.snapshot(true, false)
	return &iterator{keys: keys}, nil
}

// Values returns a fresh iterator over all values, ordered by their keys.
func (s *Store) Values() (store.Iterator, error) {
	_, values := s.snapshot(false, true)
	return &iterator{values: values}, nil
}

// Items returns a fresh iterator over all key-value pairs in ascending key
// order.
func (s *Store) Items() (store.Iterator, error) {
	keys, values := s.snapshot(true, true)
	return &iterator{keys: keys, values: values}, nil
}

// Len counts all entries by draining a keys-only iteration, as the contract
// prescribes.
func (s *Store) Len() (int, error) {
	it, err := s.Keys()
	if err != nil {
		return 0, err
	}
	defer it.Close()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// --------------------------------------------------------------------------
// Batch Writer
// --------------------------------------------------------------------------

type mutation struct {
	key    []byte
	value  []byte
	delete bool
}

// batch stages mutations and applies them under the store's write lock, so
// readers observe either none or all of a committed batch.
type batch struct {
	s    *Store
	muts []mutation
	done bool
}

var _ store.Batch = (*batch)(nil)

// NewBatch creates an atomic write batch.
func (s *Store) NewBatch() (store.Batch, error) {
	return &batch{s: s}, nil
}

func (b *batch) Set(key, value []byte) error {
	if b.done {
		return store.ErrBatchCommitted
	}
	b.muts = append(b.muts, mutation{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (b *batch) Delete(key []byte) error {
	if b.done {
		return store.ErrBatchCommitted
	}
	b.muts = append(b.muts, mutation{
		key:    append([]byte(nil), key...),
		delete: true,
	})
	return nil
}

func (b *batch) Len() int {
	return len(b.muts)
}

func (b *batch) Commit() error {
	if b.done {
		return store.ErrBatchCommitted
	}
	b.done = true

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for _, m := range b.muts {
		if m.delete {
			b.s.m.Delete(m.key)
			continue
		}
		b.s.m.Store(m.key, m.value)
	}
	b.muts = nil
	return nil
}

func (b *batch) Close() error {
	b.done = true
	b.muts = nil
	return nil
}

// --------------------------------------------------------------------------
// Recovery Operations
// --------------------------------------------------------------------------

// PersistedOffset delegates to the configured offset source; without one
// every partition reports found=false.
func (s *Store) PersistedOffset(tp changelog.TopicPartition) (int64, bool, error) {
	if s.offsets == nil {
		return 0, false, nil
	}
	return s.offsets.GetOffset(tp)
}

// ApplyChangelogBatch replays one batch of changelog events atomically,
// with the same transform and tombstone semantics as the durable backend.
func (s *Store) ApplyChangelogBatch(events []changelog.Event, toKey, toValue changelog.Transform) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	b, err := s.NewBatch()
	if err != nil {
		return err
	}
	defer b.Close()

	for _, ev := range events {
		key := toKey.Apply(ev.Key)
		if ev.Tombstone() {
			if err := b.Delete(key); err != nil {
				return err
			}
			continue
		}
		if err := b.Set(key, toValue.Apply(ev.Value)); err != nil {
			return err
		}
	}
	return b.Commit()
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Flush is a no-op; there is no write buffer behind an in-memory store.
func (s *Store) Flush() error {
	return nil
}

// Reset discards all entries by swapping in an empty map. There is no disk
// state, so reset and close differ only in intent.
func (s *Store) Reset() error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = newOrderedMap()
	return nil
}

// Clear is not supported; use Reset. Same contract decision as the durable
// backend.
func (s *Store) Clear() error {
	return store.ErrNotSupported
}

// Close releases nothing for the in-memory backend; entries stay readable
// so a later access behaves like the durable backend's lazy reopen.
func (s *Store) Close() error {
	return nil
}
