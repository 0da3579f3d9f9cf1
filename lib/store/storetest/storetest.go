package storetest

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"tablekv/lib/changelog"
	"tablekv/lib/store"
)

// Factory creates a fresh, empty store for one test. Implementations should
// register cleanup (Close, temp dir removal) on t themselves.
type Factory func(t testing.TB) store.Store

// RunStoreTests runs the conformance suite for a store.Store implementation.
// Every backend in the module must pass it unchanged.
func RunStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("CopySemantics", func(t *testing.T) {
			testCopySemantics(t, factory(t))
		})

		t.Run("IterationOrdering", func(t *testing.T) {
			testIterationOrdering(t, factory(t))
		})

		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, factory(t))
		})

		t.Run("Batch", func(t *testing.T) {
			testBatch(t, factory(t))
		})

		t.Run("BatchSingleUse", func(t *testing.T) {
			testBatchSingleUse(t, factory(t))
		})

		t.Run("ApplyChangelogBatch", func(t *testing.T) {
			testApplyChangelogBatch(t, factory(t))
		})

		t.Run("ChangelogIdempotence", func(t *testing.T) {
			testChangelogIdempotence(t, factory(t))
		})

		t.Run("ConcurrentApplyAndReset", func(t *testing.T) {
			testConcurrentApplyAndReset(t, factory(t))
		})

		t.Run("PersistedOffset", func(t *testing.T) {
			testPersistedOffset(t, factory(t))
		})

		t.Run("Reset", func(t *testing.T) {
			testReset(t, factory(t))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustSet fails the test on any Set error.
func mustSet(t testing.TB, s store.Store, key, value string) {
	t.Helper()
	if err := s.Set([]byte(key), []byte(value)); err != nil {
		t.Fatalf("Set(%q, %q): %v", key, value, err)
	}
}

// expectValue asserts that Get finds exactly the given value.
func expectValue(t testing.TB, s store.Store, key, value string) {
	t.Helper()
	got, found, err := s.Get([]byte(key))
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if !found {
		t.Errorf("Expected key %q to exist", key)
		return
	}
	if !bytes.Equal(got, []byte(value)) {
		t.Errorf("Expected value %q for key %q, got %q", value, key, got)
	}
}

// expectAbsent asserts that neither Get nor Has finds the key.
func expectAbsent(t testing.TB, s store.Store, key string) {
	t.Helper()
	got, found, err := s.Get([]byte(key))
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if found {
		t.Errorf("Expected key %q to be absent, got value %q", key, got)
	}
	has, err := s.Has([]byte(key))
	if err != nil {
		t.Fatalf("Has(%q): %v", key, err)
	}
	if has {
		t.Errorf("Expected Has(%q) to be false", key)
	}
}

// drainKeys collects all keys of a keys-only iteration.
func drainKeys(t testing.TB, s store.Store) [][]byte {
	t.Helper()
	it, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys(): %v", err)
	}
	defer it.Close()

	var keys [][]byte
	for it.Next() {
		keys = append(keys, it.Key())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("keys iteration: %v", err)
	}
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.Store) {
	mustSet(t, s, "test-key", "test-value1")
	expectValue(t, s, "test-key", "test-value1")

	// unconditional upsert overwrites
	mustSet(t, s, "test-key", "test-value2")
	expectValue(t, s, "test-key", "test-value2")

	expectAbsent(t, s, "nonexistent-key")
}

func testDelete(t *testing.T, s store.Store) {
	mustSet(t, s, "test-key", "test-value")
	if err := s.Delete([]byte("test-key")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	expectAbsent(t, s, "test-key")

	// deleting a missing key is a no-op
	if err := s.Delete([]byte("never-existed")); err != nil {
		t.Errorf("Deleting a missing key should not error, got %v", err)
	}
}

func testHas(t *testing.T, s store.Store) {
	mustSet(t, s, "present", "v")

	has, err := s.Has([]byte("present"))
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Errorf("Expected Has to find a committed key (no false negatives)")
	}

	has, err = s.Has([]byte("absent"))
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Errorf("Expected Has to resolve an absent key to false")
	}

	// every committed, undeleted key must be found
	for i := 0; i < 256; i++ {
		mustSet(t, s, fmt.Sprintf("bulk-%03d", i), "v")
	}
	for i := 0; i < 256; i++ {
		key := fmt.Sprintf("bulk-%03d", i)
		has, err := s.Has([]byte(key))
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			t.Fatalf("False negative for key %q", key)
		}
	}
}

func testEdgeCases(t *testing.T, s store.Store) {
	// empty value round-trips as an empty value, not as absence
	if err := s.Set([]byte("empty-value"), []byte{}); err != nil {
		t.Fatal(err)
	}
	got, found, err := s.Get([]byte("empty-value"))
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Errorf("Expected an empty value to be found")
	}
	if len(got) != 0 {
		t.Errorf("Expected empty value, got %q", got)
	}

	// empty key is a legal key
	if err := s.Set([]byte{}, []byte("v")); err != nil {
		t.Fatal(err)
	}
	expectValue(t, s, "", "v")

	// binary keys and values survive untouched
	key := []byte{0x00, 0xff, 0x10, 0x00}
	value := []byte{0xde, 0xad, 0x00, 0xbe, 0xef}
	if err := s.Set(key, value); err != nil {
		t.Fatal(err)
	}
	got, found, err = s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !found || !bytes.Equal(got, value) {
		t.Errorf("Binary round trip failed: found=%v got=%x", found, got)
	}
}

func testCopySemantics(t *testing.T, s store.Store) {
	key := []byte("copy-key")
	value := []byte("copy-value")
	if err := s.Set(key, value); err != nil {
		t.Fatal(err)
	}

	// mutating the caller's slices after Set must not affect the store
	value[0] = 'X'
	expectValue(t, s, "copy-key", "copy-value")

	// mutating a returned value must not affect later reads
	got, _, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	got[0] = 'Y'
	expectValue(t, s, "copy-key", "copy-value")
}

func testIterationOrdering(t *testing.T, s store.Store) {
	// insert in scrambled order, including keys where bytewise order
	// differs from natural-language expectations
	keys := []string{"delta", "alpha", "Zulu", "charlie", "bravo", "alpha2"}
	for _, k := range keys {
		mustSet(t, s, k, "v-"+k)
	}

	want := make([]string, len(keys))
	copy(want, keys)
	sort.Strings(want) // bytewise ascending for ASCII

	got := drainKeys(t, s)
	if len(got) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(got))
	}
	for i, k := range got {
		if string(k) != want[i] {
			t.Errorf("Position %d: expected key %q, got %q", i, want[i], k)
		}
	}

	// values iteration yields values in key order, no keys
	it, err := s.Values()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	i := 0
	for it.Next() {
		if it.Key() != nil {
			t.Errorf("Values iteration should not yield keys")
		}
		if want := "v-" + want[i]; string(it.Value()) != want {
			t.Errorf("Position %d: expected value %q, got %q", i, want, it.Value())
		}
		i++
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if i != len(want) {
		t.Errorf("Expected %d values, got %d", len(want), i)
	}
}

// testScenario is the concrete acceptance scenario: a, c, b inserted out of
// order come back as (a,1),(b,2),(c,3).
func testScenario(t *testing.T, s store.Store) {
	mustSet(t, s, "a", "1")
	mustSet(t, s, "c", "3")
	mustSet(t, s, "b", "2")

	it, err := s.Items()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	want := [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}}
	i := 0
	for it.Next() {
		if i >= len(want) {
			t.Fatalf("Iteration yielded more than %d items", len(want))
		}
		if string(it.Key()) != want[i][0] || string(it.Value()) != want[i][1] {
			t.Errorf("Position %d: expected (%q, %q), got (%q, %q)",
				i, want[i][0], want[i][1], it.Key(), it.Value())
		}
		i++
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if i != 3 {
		t.Errorf("Expected 3 items, got %d", i)
	}

	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Expected Len()==3, got %d", n)
	}

	expectAbsent(t, s, "z")
}

func testBatch(t *testing.T, s store.Store) {
	mustSet(t, s, "doomed", "v")

	b, err := s.NewBatch()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := b.Set([]byte("k2"), []byte("v2")); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete([]byte("doomed")); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 3 {
		t.Errorf("Expected 3 staged mutations, got %d", b.Len())
	}

	// nothing visible before commit
	expectAbsent(t, s, "k1")

	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}
	expectValue(t, s, "k1", "v1")
	expectValue(t, s, "k2", "v2")
	expectAbsent(t, s, "doomed")

	// a closed-without-commit batch leaves no trace
	b, err = s.NewBatch()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Set([]byte("discarded"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	expectAbsent(t, s, "discarded")
}

func testBatchSingleUse(t *testing.T, s store.Store) {
	b, err := s.NewBatch()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	if err := b.Set([]byte("k2"), []byte("v2")); !errors.Is(err, store.ErrBatchCommitted) {
		t.Errorf("Expected ErrBatchCommitted from Set after Commit, got %v", err)
	}
	if err := b.Delete([]byte("k")); !errors.Is(err, store.ErrBatchCommitted) {
		t.Errorf("Expected ErrBatchCommitted from Delete after Commit, got %v", err)
	}
	if err := b.Commit(); !errors.Is(err, store.ErrBatchCommitted) {
		t.Errorf("Expected ErrBatchCommitted from second Commit, got %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close after Commit should be a no-op, got %v", err)
	}
}

func testApplyChangelogBatch(t *testing.T, s store.Store) {
	mustSet(t, s, "stale", "old")

	tp := changelog.TP("table-changelog", 0)
	events := []changelog.Event{
		{TP: tp, Offset: 1, Key: []byte("k1"), Value: []byte("v1")},
		{TP: tp, Offset: 2, Key: []byte("k2"), Value: []byte("v2")},
		{TP: tp, Offset: 3, Key: []byte("stale"), Value: nil}, // tombstone
		{TP: tp, Offset: 4, Key: []byte("k1"), Value: []byte("v1-final")},
	}

	if err := s.ApplyChangelogBatch(events, nil, nil); err != nil {
		t.Fatal(err)
	}

	// last writer wins within the batch; tombstones delete
	expectValue(t, s, "k1", "v1-final")
	expectValue(t, s, "k2", "v2")
	expectAbsent(t, s, "stale")

	// transforms derive the stored bytes; tombstones skip the value transform
	prefixKey := changelog.Transform(func(b []byte) []byte {
		return append([]byte("p/"), b...)
	})
	upper := changelog.Transform(bytes.ToUpper)
	events = []changelog.Event{
		{TP: tp, Offset: 5, Key: []byte("t1"), Value: []byte("abc")},
		{TP: tp, Offset: 6, Key: []byte("k1"), Value: nil},
	}
	if err := s.ApplyChangelogBatch(events, prefixKey, upper); err != nil {
		t.Fatal(err)
	}
	expectValue(t, s, "p/t1", "ABC")
	expectAbsent(t, s, "p/k1")
	// the untransformed key is untouched
	expectValue(t, s, "k1", "v1-final")

	// an empty batch commits cleanly
	if err := s.ApplyChangelogBatch(nil, nil, nil); err != nil {
		t.Errorf("Empty batch should apply cleanly, got %v", err)
	}
}

func testChangelogIdempotence(t *testing.T, s store.Store) {
	tp := changelog.TP("table-changelog", 2)
	events := []changelog.Event{
		{TP: tp, Offset: 10, Key: []byte("a"), Value: []byte("1")},
		{TP: tp, Offset: 11, Key: []byte("b"), Value: []byte("2")},
		{TP: tp, Offset: 12, Key: []byte("a"), Value: nil},
		{TP: tp, Offset: 13, Key: []byte("c"), Value: []byte("3")},
	}

	// applying the same batch twice yields the same final state as once
	if err := s.ApplyChangelogBatch(events, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyChangelogBatch(events, nil, nil); err != nil {
		t.Fatal(err)
	}

	expectAbsent(t, s, "a")
	expectValue(t, s, "b", "2")
	expectValue(t, s, "c", "3")
	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 entries after replay, got %d", n)
	}
}

// testConcurrentApplyAndReset races changelog replay against reset. The two
// are serialized per store, so the final state must be either fully applied
// or fully empty, never a partial batch and never a half-reset store.
func testConcurrentApplyAndReset(t *testing.T, s store.Store) {
	tp := changelog.TP("table-changelog", 9)
	const batchSize = 32
	events := make([]changelog.Event, batchSize)
	for i := range events {
		events[i] = changelog.Event{
			TP:     tp,
			Offset: int64(i),
			Key:    []byte(fmt.Sprintf("race-%02d", i)),
			Value:  []byte("v"),
		}
	}

	for round := 0; round < 8; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := s.ApplyChangelogBatch(events, nil, nil); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := s.Reset(); err != nil {
				t.Error(err)
			}
		}()
		wg.Wait()

		n, err := s.Len()
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 && n != batchSize {
			t.Fatalf("Round %d: expected 0 or %d entries, got %d", round, batchSize, n)
		}
		if n == batchSize {
			// reset ran first; the whole batch must be visible
			for _, ev := range events {
				has, err := s.Has(ev.Key)
				if err != nil {
					t.Fatal(err)
				}
				if !has {
					t.Fatalf("Round %d: key %q missing from a fully applied batch", round, ev.Key)
				}
			}
		}

		if err := s.Reset(); err != nil {
			t.Fatal(err)
		}
	}
}

func testPersistedOffset(t *testing.T, s store.Store) {
	// the conformance factories configure no offset source, so every
	// partition reports absent
	offset, found, err := s.PersistedOffset(changelog.TP("table-changelog", 0))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Errorf("Expected no persisted offset without a source, got %d", offset)
	}
}

func testReset(t *testing.T, s store.Store) {
	mustSet(t, s, "k1", "v1")
	mustSet(t, s, "k2", "v2")

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	// the next access reopens an empty store
	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Expected empty store after reset, got %d entries", n)
	}
	expectAbsent(t, s, "k1")

	// the store is fully usable again
	mustSet(t, s, "k3", "v3")
	expectValue(t, s, "k3", "v3")

	// resetting an already reset (or never opened) store succeeds
	if err := s.Reset(); err != nil {
		t.Errorf("Reset of an empty store should succeed, got %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Errorf("Repeated reset should succeed, got %v", err)
	}
}

func testClear(t *testing.T, s store.Store) {
	if err := s.Clear(); !errors.Is(err, store.ErrNotSupported) {
		t.Errorf("Expected ErrNotSupported from Clear, got %v", err)
	}
}
