package pebbledb

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"log/slog"

	"tablekv/lib/changelog"
	"tablekv/lib/logging"
	"tablekv/lib/store"
)

// --------------------------------------------------------------------------
// Core Store Structure
// --------------------------------------------------------------------------

// Store is the durable store.Store implementation over the pebble engine.
// One Store owns one engine instance and one on-disk directory; no second
// Store may point at the same directory (the engine's directory lock makes
// a concurrent second open fail with *store.OpenError).
//
// Construction touches no disk. The engine is opened lazily by the first
// operation that needs it, configured from Options, and the membership
// probe is seeded from a full keys scan, so the open cost is proportional
// to the number of live keys.
type Store struct {
	table string
	dir   string
	opts  Options

	// engine lifecycle. db == nil means closed; db and probe are swapped
	// together under mu.
	mu    sync.RWMutex
	db    *pebble.DB
	probe *probe

	// applyMu serializes ApplyChangelogBatch and Reset against each other
	// and themselves.
	applyMu sync.Mutex

	log     *slog.Logger
	metrics *storeMetrics
}

var _ store.Store = (*Store)(nil)

// New creates a table store persisting under dir (conventionally
// "<root>/<table>.db", see lib/tables). A nil opts uses all defaults.
//
// Thread-safety: the returned Store is safe for concurrent use.
func New(table, dir string, opts *Options) *Store {
	o := opts.withDefaults()
	return &Store{
		table:   table,
		dir:     dir,
		opts:    o,
		log:     logging.For("pebbledb").With(slog.String("table", table)),
		metrics: newStoreMetrics(table),
	}
}

// --------------------------------------------------------------------------
// Engine Lifecycle
// --------------------------------------------------------------------------

// acquire returns the live engine handle with the lifecycle read lock held,
// opening the engine first if necessary. The caller must invoke unlock when
// done with the handle; until then Reset and Close cannot swap it away.
func (s *Store) acquire() (db *pebble.DB, unlock func(), err error) {
	for {
		s.mu.RLock()
		if s.db != nil {
			return s.db, s.mu.RUnlock, nil
		}
		s.mu.RUnlock()
		if err := s.open(); err != nil {
			return nil, nil, err
		}
	}
}

// open performs the single-entry lazy initialization: create the engine
// directory if absent, open pebble with the mapped configuration and seed
// the membership probe. Calling open on an already open store is a no-op.
func (s *Store) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	cache := pebble.NewCache(s.opts.BlockCacheSize + s.opts.BlockCacheCompressedSize)
	db, err := openEngine(s.dir, s.engineOptions(cache))
	// The engine holds its own cache reference after a successful open;
	// release ours either way.
	cache.Unref()
	if err != nil {
		openErr := &store.OpenError{Table: s.table, Path: s.dir, Err: err}
		s.log.Error("engine open failed", slog.String("path", s.dir), slog.Any("err", err))
		return openErr
	}

	probe, count, err := s.seedProbe(db)
	if err != nil {
		_ = db.Close()
		return &store.OpenError{Table: s.table, Path: s.dir, Err: err}
	}

	s.db = db
	s.probe = probe
	s.log.Info("engine opened",
		slog.String("path", s.dir),
		slog.Int("keys", count),
	)
	return nil
}

// openEngine calls pebble.Open and converts an engine panic into an error.
// The engine's open-failure cleanup can panic (it double-closes its data
// directory, which closes an already-closed channel) when the directory
// lock is held by another opener; the contract is an open error, not a dead
// process.
func openEngine(dir string, opts *pebble.Options) (db *pebble.DB, err error) {
	defer func() {
		if r := recover(); r != nil {
			db = nil
			err = fmt.Errorf("engine open panicked: %v", r)
		}
	}()
	return pebble.Open(dir, opts)
}

// seedProbe builds the membership probe for an opened engine: one pass to
// count live keys and size the filter, one pass to add them.
func (s *Store) seedProbe(db *pebble.DB) (*probe, int, error) {
	count := 0
	it := db.NewIter(nil)
	for ok := it.First(); ok; ok = it.Next() {
		count++
	}
	if err := firstIterErr(it.Error(), it.Close()); err != nil {
		return nil, 0, fmt.Errorf("counting keys: %w", err)
	}

	p := newProbe(probeCapacity(count), s.opts.BloomFilterBitsPerKey)
	if p.filter == nil || count == 0 {
		return p, count, nil
	}

	it = db.NewIter(nil)
	for ok := it.First(); ok; ok = it.Next() {
		p.add(it.Key())
	}
	if err := firstIterErr(it.Error(), it.Close()); err != nil {
		return nil, 0, fmt.Errorf("seeding probe: %w", err)
	}
	return p, count, nil
}

func firstIterErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush forces buffered writes to stable storage. A closed store has
// nothing buffered and returns nil.
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil
	}
	if err := s.db.Flush(); err != nil {
		return fmt.Errorf("flush table %q: %w", s.table, err)
	}
	return nil
}

// Close releases the engine without touching on-disk data. A later
// operation reopens lazily. Closing a closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.probe = nil
	if err != nil {
		return fmt.Errorf("close table %q: %w", s.table, err)
	}
	return nil
}

// Reset discards the store's entire on-disk state: the engine is closed and
// the table directory removed recursively. A missing directory is success,
// the desired postcondition (an empty store on next open) already holds.
// All iterators and batches must be finished before calling Reset.
func (s *Store) Reset() error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Error("closing engine before reset", slog.Any("err", err))
		}
		s.db = nil
		s.probe = nil
	}
	s.mu.Unlock()

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("reset table %q: removing %s: %w", s.table, s.dir, err)
	}
	s.metrics.resets.Inc()
	s.log.Info("table reset", slog.String("path", s.dir))
	return nil
}

// Clear is not supported; use Reset. Removing all entries while keeping the
// engine instance alive is not needed by any caller of this store.
func (s *Store) Clear() error {
	return store.ErrNotSupported
}

// --------------------------------------------------------------------------
// Point-Access Operations
// --------------------------------------------------------------------------

// Get returns the value stored for key, or found=false if there is none.
//
// Thread-safety: safe for concurrent use.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	db, unlock, err := s.acquire()
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	s.metrics.reads.Inc()
	val, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get on table %q: %w", s.table, err)
	}
	value := append([]byte(nil), val...)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("get on table %q: %w", s.table, err)
	}
	return value, true, nil
}

// Set inserts or updates a key-value pair. The key enters the membership
// probe only after the engine write succeeded.
//
// Thread-safety: safe for concurrent use.
func (s *Store) Set(key, value []byte) error {
	db, unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	if err := db.Set(key, value, pebble.NoSync); err != nil {
		return fmt.Errorf("set on table %q: %w", s.table, err)
	}
	s.probe.add(key)
	s.metrics.writes.Inc()
	return nil
}

// Delete removes a key-value pair. Deleting a missing key is a no-op. The
// membership probe keeps the key until the next reopen; that costs a false
// positive on Has, which the confirming lookup resolves.
//
// Thread-safety: safe for concurrent use.
func (s *Store) Delete(key []byte) error {
	db, unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	if err := db.Delete(key, pebble.NoSync); err != nil {
		return fmt.Errorf("delete on table %q: %w", s.table, err)
	}
	s.metrics.deletes.Inc()
	return nil
}

// Has reports whether a value for key exists. The membership probe answers
// first: "definitely absent" returns false without an engine read, "maybe
// present" is confirmed by an exact lookup, so false probe positives still
// resolve to false and false negatives cannot occur.
//
// Thread-safety: safe for concurrent use.
func (s *Store) Has(key []byte) (bool, error) {
	db, unlock, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer unlock()

	if !s.probe.mayContain(key) {
		s.metrics.probeNegatives.Inc()
		return false, nil
	}

	s.metrics.reads.Inc()
	_, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("has on table %q: %w", s.table, err)
	}
	if err := closer.Close(); err != nil {
		return false, fmt.Errorf("has on table %q: %w", s.table, err)
	}
	return true, nil
}

// MaybeContains exposes the probe verdict alone: false means the key is
// definitely absent, true means it may be present and only an exact lookup
// can tell. Exported so the no-false-negative property is testable
// independently of Has.
func (s *Store) MaybeContains(key []byte) (bool, error) {
	_, unlock, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer unlock()
	return s.probe.mayContain(key), nil
}

// --------------------------------------------------------------------------
// Recovery Operations
// --------------------------------------------------------------------------

// PersistedOffset returns the last changelog offset whose effects are
// durable for the given partition, read from the configured checkpoint
// source. Without a source every partition reports found=false. The query
// does not open the engine.
func (s *Store) PersistedOffset(tp changelog.TopicPartition) (int64, bool, error) {
	if s.opts.Offsets == nil {
		return 0, false, nil
	}
	return s.opts.Offsets.GetOffset(tp)
}

// ApplyChangelogBatch replays one batch of changelog events: every event is
// staged in a single engine batch, with the transforms applied to key and
// value bytes and nil-valued events staged as deletes, then committed once,
// synced to disk. Either the whole batch becomes visible or none of it.
// Replaying the same batch again yields the same final state.
//
// Thread-safety: safe for concurrent use; runs are serialized with each
// other and with Reset.
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

	if err := b.Commit(); err != nil {
		return fmt.Errorf("apply changelog batch of %d events to table %q: %w", len(events), s.table, err)
	}
	s.log.Debug("changelog batch applied", slog.Int("events", len(events)))
	return nil
}
