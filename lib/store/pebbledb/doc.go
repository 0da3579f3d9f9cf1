// Package pebbledb implements the durable table store over the pebble LSM
// engine. It is the backend production tables run on: one Store owns one
// engine instance persisting under one directory, conventionally
// "<root>/<table>.db" (see lib/tables).
//
// Behavior highlights:
//
//   - Lazy lifecycle: construction touches no disk. The first operation
//     opens the engine with the configured tuning (Options), creating the
//     directory if needed; Close releases the engine and a later operation
//     reopens; Reset closes and deletes the whole directory.
//
//   - Membership probe: a bloom filter owned by the adapter answers Has
//     before the engine is consulted. "Definitely absent" skips the engine
//     read entirely; "maybe present" is confirmed with an exact lookup.
//     The filter is seeded from a full keys scan at open and extended on
//     every successful write, so Has never returns a false negative.
//
//   - Atomic batches: NewBatch stages mutations and commits them as one
//     synced engine batch; ApplyChangelogBatch replays a slice of changelog
//     events (nil values delete) through one such batch, serialized against
//     Reset.
//
// Example usage:
//
//	s := pebbledb.New("wordcounts", "/var/data/wordcounts.db", nil)
//	defer s.Close()
//
//	if err := s.Set([]byte("hello"), []byte("1")); err != nil {
//		log.Fatal(err)
//	}
//	value, found, err := s.Get([]byte("hello"))
//
// Thread-safety: a Store is safe for concurrent use. Individual iterators
// and batches are not; each goroutine needs its own.
package pebbledb
