package pebbledb

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"tablekv/lib/store"
)

// --------------------------------------------------------------------------
// Iteration Primitives
// --------------------------------------------------------------------------

// iterMode selects which parts of an entry an iterator yields.
type iterMode int

const (
	iterKeys iterMode = iota
	iterValues
	iterItems
)

// iterator adapts a pebble iterator to the store.Iterator contract: forward
// only, ascending key order, copy semantics on Key and Value. The engine
// iterator pins a point-in-time view, so writes issued after creation are
// never observed.
//
// The iterator holds the store's lifecycle read lock until Close, which is
// why Reset and Close on the store wait for all iterators to finish.
type iterator struct {
	it     *pebble.Iterator
	mode   iterMode
	table  string
	unlock func()

	started bool
	key     []byte
	value   []byte
	err     error
}

var _ store.Iterator = (*iterator)(nil)

func (i *iterator) Next() bool {
	if i.it == nil || i.err != nil {
		return false
	}

	var ok bool
	if !i.started {
		i.started = true
		ok = i.it.First()
	} else {
		ok = i.it.Next()
	}
	if !ok {
		i.err = i.it.Error()
		return false
	}

	i.key, i.value = nil, nil
	if i.mode != iterValues {
		i.key = append([]byte(nil), i.it.Key()...)
	}
	if i.mode != iterKeys {
		i.value = append([]byte(nil), i.it.Value()...)
	}
	return true
}

func (i *iterator) Key() []byte {
	return i.key
}

func (i *iterator) Value() []byte {
	return i.value
}

func (i *iterator) Err() error {
	if i.err != nil {
		return fmt.Errorf("iterating table %q: %w", i.table, i.err)
	}
	return nil
}

func (i *iterator) Close() error {
	if i.it == nil {
		return nil
	}
	err := i.it.Close()
	i.it = nil
	i.unlock()
	if err != nil {
		return fmt.Errorf("closing iterator on table %q: %w", i.table, err)
	}
	return nil
}

// newIterator opens the engine if needed and creates a fresh iterator
// positioned before the first entry.
func (s *Store) newIterator(mode iterMode) (store.Iterator, error) {
	db, unlock, err := s.acquire()
	if err != nil {
		return nil, err
	}
	return &iterator{
		it:     db.NewIter(nil),
		mode:   mode,
		table:  s.table,
		unlock: unlock,
	}, nil
}

// Keys returns a fresh iterator over all keys in ascending byte order.
//
// Thread-safety: distinct iterators are independent; one iterator must not
// be shared between goroutines.
func (s *Store) Keys() (store.Iterator, error) {
	return s.newIterator(iterKeys)
}

// Values returns a fresh iterator over all values, ordered by their keys.
func (s *Store) Values() (store.Iterator, error) {
	return s.newIterator(iterValues)
}

// Items returns a fresh iterator over all key-value pairs in ascending key
// order.
func (s *Store) Items() (store.Iterator, error) {
	return s.newIterator(iterItems)
}

// Len counts all entries by draining a keys-only iteration. O(n) in the
// number of live keys; callers that only need "is it empty" should still
// expect a full scan.
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
	if err := it.Err(); err != nil {
		return 0, err
	}
	return n, nil
}
