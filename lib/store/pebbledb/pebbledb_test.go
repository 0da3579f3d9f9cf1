package pebbledb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/VictoriaMetrics/metrics"

	"tablekv/lib/changelog"
	"tablekv/lib/checkpoints"
	"tablekv/lib/store"
	"tablekv/lib/store/storetest"
)

// tempStore creates a store under a fresh temp directory. Test options keep
// memory use small; the tuning surface itself is covered separately.
func tempStore(tb testing.TB, opts *Options) *Store {
	tb.Helper()
	if opts == nil {
		opts = testOptions()
	}
	s := New("test-table", filepath.Join(tb.TempDir(), "test-table.db"), opts)
	tb.Cleanup(func() { s.Close() })
	return s
}

func testOptions() *Options {
	return &Options{
		WriteBufferSize:          1 << 20,
		BlockCacheSize:           1 << 20,
		BlockCacheCompressedSize: 1 << 20,
	}
}

func TestStoreConformance(t *testing.T) {
	storetest.RunStoreTests(t, "pebbledb", func(tb testing.TB) store.Store {
		return tempStore(tb, nil)
	})
}

func BenchmarkStore(b *testing.B) {
	storetest.RunStoreBenchmarks(b, "pebbledb", func(tb testing.TB) store.Store {
		return tempStore(tb, nil)
	})
}

func TestLazyOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lazy.db")
	s := New("lazy", dir, testOptions())
	defer s.Close()

	// construction must not touch disk
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected no directory before first access, stat err=%v", err)
	}

	// the first operation opens the engine and creates the directory
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Expected directory after first access: %v", err)
	}
}

func TestOpenErrorOnUnusablePath(t *testing.T) {
	// a regular file where the engine directory should be
	path := filepath.Join(t.TempDir(), "blocked.db")
	if err := os.WriteFile(path, []byte("not a directory"), 0600); err != nil {
		t.Fatal(err)
	}

	s := New("blocked", path, testOptions())
	defer s.Close()

	_, _, err := s.Get([]byte("k"))
	var openErr *store.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("Expected *store.OpenError, got %v", err)
	}
	if openErr.Table != "blocked" || openErr.Path != path {
		t.Errorf("OpenError lacks context: %+v", openErr)
	}
}

func TestSecondOpenSameDirFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locked.db")

	first := New("locked", dir, testOptions())
	defer first.Close()
	if err := first.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	// the engine's directory lock must reject a concurrent second opener
	second := New("locked", dir, testOptions())
	defer second.Close()
	_, _, err := second.Get([]byte("k"))
	var openErr *store.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("Expected *store.OpenError from second open, got %v", err)
	}
}

func TestProbeReseededAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reopen.db")

	s := New("reopen", dir, testOptions())
	for i := 0; i < 100; i++ {
		if err := s.Set([]byte(fmt.Sprintf("key-%03d", i)), []byte("v")); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// a new store over the same directory must rebuild the probe from disk:
	// no false negatives for any committed key
	s = New("reopen", dir, testOptions())
	defer s.Close()
	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		may, err := s.MaybeContains(key)
		if err != nil {
			t.Fatal(err)
		}
		if !may {
			t.Fatalf("Probe false negative for %q after reopen", key)
		}
		has, err := s.Has(key)
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			t.Fatalf("False negative for %q after reopen", key)
		}
	}
}

func TestMaybeContains(t *testing.T) {
	s := tempStore(t, nil)

	if err := s.Set([]byte("present"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	// present keys must probe positive
	may, err := s.MaybeContains([]byte("present"))
	if err != nil {
		t.Fatal(err)
	}
	if !may {
		t.Errorf("Probe must never report a committed key as absent")
	}

	// a deleted key may stay "maybe present" in the probe; Has must still
	// resolve it to false via the exact lookup
	if err := s.Delete([]byte("present")); err != nil {
		t.Fatal(err)
	}
	has, err := s.Has([]byte("present"))
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Errorf("Has must resolve a deleted key to false even if the probe says maybe")
	}
}

func TestProbeDisabled(t *testing.T) {
	opts := testOptions()
	opts.BloomFilterBitsPerKey = -1
	s := tempStore(t, opts)

	// with the probe disabled every key is "maybe present" and Has falls
	// through to the exact lookup
	may, err := s.MaybeContains([]byte("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if !may {
		t.Errorf("A disabled probe must report maybe for every key")
	}
	has, err := s.Has([]byte("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Errorf("Expected Has to be exact with the probe disabled")
	}
}

func TestResetDeletesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone.db")
	s := New("gone", dir, testOptions())
	defer s.Close()

	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected directory to be removed by reset, stat err=%v", err)
	}

	// reset of a store that never touched disk succeeds too
	fresh := New("fresh", filepath.Join(t.TempDir(), "fresh.db"), testOptions())
	defer fresh.Close()
	if err := fresh.Reset(); err != nil {
		t.Errorf("Reset of a never-opened store should succeed, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "durable.db")

	s := New("durable", dir, testOptions())
	if err := s.ApplyChangelogBatch([]changelog.Event{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// committed batches survive a close and reopen
	s = New("durable", dir, testOptions())
	defer s.Close()
	value, found, err := s.Get([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(value) != "1" {
		t.Errorf("Expected a=1 after reopen, got found=%v value=%q", found, value)
	}
	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 entries after reopen, got %d", n)
	}
}

func TestOffsetDelegation(t *testing.T) {
	cp := checkpoints.NewMemory()
	tp := changelog.TP("table-changelog", 7)
	if err := cp.SetOffset(tp, 1234); err != nil {
		t.Fatal(err)
	}

	opts := testOptions()
	opts.Offsets = cp
	s := tempStore(t, opts)

	offset, found, err := s.PersistedOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !found || offset != 1234 {
		t.Errorf("Expected offset 1234, got found=%v offset=%d", found, offset)
	}

	// the offset query must not open the engine
	if _, err := os.Stat(s.dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("PersistedOffset should not open the engine, stat err=%v", err)
	}

	_, found, err = s.PersistedOffset(changelog.TP("table-changelog", 8))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Errorf("Expected no offset for an unrecorded partition")
	}
}

func TestReadCounterCountsLookups(t *testing.T) {
	// counters are per table name, so this test owns its own
	table := "read-counter-table"
	s := New(table, filepath.Join(t.TempDir(), table+".db"), testOptions())
	t.Cleanup(func() { s.Close() })

	counter := metrics.GetOrCreateCounter(fmt.Sprintf(`tablekv_store_reads_total{table=%q}`, table))
	before := counter.Get()

	// a miss is still an engine lookup
	if _, found, err := s.Get([]byte("missing")); err != nil || found {
		t.Fatalf("Unexpected get result: found=%v err=%v", found, err)
	}

	// a deleted key keeps probing positive, so Has runs the exact lookup
	if err := s.Set([]byte("gone"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete([]byte("gone")); err != nil {
		t.Fatal(err)
	}
	has, err := s.Has([]byte("gone"))
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatalf("Expected Has to resolve a deleted key to false")
	}

	if got := counter.Get() - before; got != 2 {
		t.Errorf("Expected 2 engine lookups counted, got %d", got)
	}
}

func TestDefaultOptions(t *testing.T) {
	o := (*Options)(nil).withDefaults()
	want := DefaultOptions()
	if o.MaxOpenFiles != want.MaxOpenFiles ||
		o.WriteBufferSize != want.WriteBufferSize ||
		o.MaxWriteBufferNumber != want.MaxWriteBufferNumber ||
		o.TargetFileSizeBase != want.TargetFileSizeBase ||
		o.BlockCacheSize != want.BlockCacheSize ||
		o.BlockCacheCompressedSize != want.BlockCacheCompressedSize ||
		o.BloomFilterBitsPerKey != want.BloomFilterBitsPerKey {
		t.Errorf("withDefaults(nil) differs from DefaultOptions: %+v vs %+v", o, *want)
	}

	// partially set options keep their values
	partial := (&Options{MaxOpenFiles: 42}).withDefaults()
	if partial.MaxOpenFiles != 42 {
		t.Errorf("Explicit option overwritten: %d", partial.MaxOpenFiles)
	}
	if partial.WriteBufferSize != want.WriteBufferSize {
		t.Errorf("Unset option not defaulted: %d", partial.WriteBufferSize)
	}
}
